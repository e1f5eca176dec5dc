package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voltage-backend/internal/middleware"
	"voltage-backend/internal/service"
	"voltage-backend/pkg/logger"
)

// writeError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported as 500 without leaking their text.
func writeError(c *gin.Context, err error) {
	switch {
	case service.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCode), errors.Is(err, service.ErrLectureIsFree):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotEnrolled),
		errors.Is(err, service.ErrAttemptsExhausted),
		errors.Is(err, service.ErrOrderNotPending),
		errors.Is(err, service.ErrAlreadyEnrolled),
		errors.Is(err, service.ErrPhoneTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.FromContext(c.Request.Context()).WithError(err).
			WithField("path", c.FullPath()).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// currentUserID returns the authenticated caller, or 0 for anonymous
// requests on optionally authenticated routes.
func currentUserID(c *gin.Context) uint {
	return c.GetUint(middleware.ContextUserID)
}

func requireUserID(c *gin.Context) (uint, bool) {
	userID := currentUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return 0, false
	}
	return userID, true
}

func serviceUnavailable(c *gin.Context, name string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": name + " service is not configured"})
}
