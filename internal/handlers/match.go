package handlers

import (
	"net/http"

	"findr-server/internal/models"
	"findr-server/internal/services"

	"github.com/gin-gonic/gin"
)

type MatchHandler struct {
	resolver  *services.MatchResolver
	directory *services.MatchDirectory
}

type SwipeRequest struct {
	TargetUserID string             `json:"target_user_id" binding:"required"`
	Action       models.SwipeAction `json:"action" binding:"required,oneof=like pass super_like"`
}

func NewMatchHandler(resolver *services.MatchResolver, directory *services.MatchDirectory) *MatchHandler {
	return &MatchHandler{
		resolver:  resolver,
		directory: directory,
	}
}

func (h *MatchHandler) Swipe(c *gin.Context) {
	var req SwipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.resolver.EvaluateSwipe(c.Request.Context(), c.GetString("user_id"), req.TargetUserID, req.Action)
	if err != nil {
		respondError(c, err, "Failed to record swipe")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *MatchHandler) GetMatches(c *gin.Context) {
	matches, err := h.directory.ListMatches(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err, "Failed to fetch matches")
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (h *MatchHandler) Unmatch(c *gin.Context) {
	if err := h.directory.Unmatch(c.Request.Context(), c.Param("match_id"), c.GetString("user_id")); err != nil {
		respondError(c, err, "Failed to unmatch")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Unmatched successfully"})
}
