package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voltage-backend/internal/config"
)

const rateLimitManagerKey = "rateLimitManager"

// WithRateLimitManager exposes the manager to the limiting middlewares below.
func WithRateLimitManager(manager *RateLimitManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager != nil {
			c.Set(rateLimitManagerKey, manager)
		}
		c.Next()
	}
}

func managerFromContext(c *gin.Context) *RateLimitManager {
	value, exists := c.Get(rateLimitManagerKey)
	if !exists {
		return nil
	}
	manager, _ := value.(*RateLimitManager)
	return manager
}

// RateLimitMiddleware limits request rate per client IP.
func RateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if shouldBypassRateLimit(c.Request) {
			c.Next()
			return
		}

		manager := managerFromContext(c)
		if manager == nil {
			c.Next()
			return
		}

		limiter := manager.GetVisitor(c.ClientIP(), cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitBurst)
		if limiter != nil && !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RedemptionRateLimitMiddleware throttles activation code attempts per
// authenticated student. It must run after AuthMiddleware.
func RedemptionRateLimitMiddleware(attemptsPerWindow, windowSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		manager := managerFromContext(c)
		if manager == nil {
			c.Next()
			return
		}

		key := c.ClientIP()
		if userID, ok := c.Get(ContextUserID); ok {
			key = fmt.Sprintf("user:%v", userID)
		}

		limiter := manager.GetRedemptionLimiter(key, attemptsPerWindow, windowSeconds)
		if limiter != nil && !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many activation attempts, please try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func shouldBypassRateLimit(r *http.Request) bool {
	if r == nil || r.URL == nil {
		return false
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/uploads/"):
		return true
	case path == "/health", path == "/metrics":
		return true
	}
	return false
}
