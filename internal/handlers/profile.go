package handlers

import (
	"net/http"
	"path/filepath"
	"strconv"

	"findr-server/internal/models"
	"findr-server/internal/services"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profiles  *services.ProfileService
	discovery *services.DiscoverySelector
	notifier  *services.Notifier
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"required,oneof=ios android web"`
}

func NewProfileHandler(profiles *services.ProfileService, discovery *services.DiscoverySelector, notifier *services.Notifier) *ProfileHandler {
	return &ProfileHandler{
		profiles:  profiles,
		discovery: discovery,
		notifier:  notifier,
	}
}

func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	profile, err := h.profiles.GetByUser(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err, "Failed to fetch profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profile, err := h.profiles.GetByUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err, "Failed to fetch profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *ProfileHandler) UpsertProfile(c *gin.Context) {
	var req services.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.profiles.CreateOrUpdate(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		respondError(c, err, "Failed to save profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile saved successfully", "profile": profile})
}

func (h *ProfileHandler) SetActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.profiles.SetActive(c.Request.Context(), c.GetString("user_id"), *req.IsActive)
	if err != nil {
		respondError(c, err, "Failed to update profile status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// Ping records activity. It always succeeds from the client's point of view.
func (h *ProfileHandler) Ping(c *gin.Context) {
	h.profiles.UpdateLastActive(c.Request.Context(), c.GetString("user_id"))
	c.Status(http.StatusNoContent)
}

func (h *ProfileHandler) RefreshGitHub(c *gin.Context) {
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	profile, err := h.profiles.RefreshGitHubStats(c.Request.Context(), c.GetString("user_id"), force)
	if err != nil {
		respondError(c, err, "Failed to refresh GitHub stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No avatar provided"})
		return
	}
	defer file.Close()

	profile, err := h.profiles.UploadAvatar(c.Request.Context(), c.GetString("user_id"), file,
		header.Size, header.Header.Get("Content-Type"), filepath.Ext(header.Filename))
	if err != nil {
		respondError(c, err, "Failed to upload avatar")
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *ProfileHandler) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device, err := h.notifier.RegisterDevice(c.Request.Context(), c.GetString("user_id"), req.Token, req.Platform)
	if err != nil {
		respondError(c, err, "Failed to register device")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"device": device})
}

func (h *ProfileHandler) Discover(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	filters := services.DiscoverFilters{Limit: limit}
	if role := c.Query("role"); role != "" {
		r := models.Role(role)
		filters.Role = &r
	}

	profiles, err := h.discovery.NextCandidates(c.Request.Context(), c.GetString("user_id"), filters)
	if err != nil {
		respondError(c, err, "Failed to fetch profiles")
		return
	}

	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}
