package handlers

import (
	"errors"
	"net/http"
	"strings"

	"findr-server/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondError maps service errors to status codes. Storage failures are
// logged and reported with the generic fallback message.
func respondError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrAuthenticationRequired):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidOperation):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithField("user_id", c.GetString("user_id")).Error(fallback)
		c.JSON(status, gin.H{"error": fallback})
		return
	}

	c.JSON(status, gin.H{"error": publicMessage(err)})
}

// publicMessage drops the sentinel prefix ("validation failed: ...").
func publicMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
