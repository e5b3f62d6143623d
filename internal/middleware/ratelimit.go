package middleware

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gyanburu-backend/internal/metrics"
	"gyanburu-backend/internal/services"
)

type Limiter interface {
	Allow(ctx context.Context, identity string) error
}

// ClientIP prefers the edge-provided address, then the first forwarded hop.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	return "unknown"
}

// RateLimitMiddleware applies limiter per client IP.
func RateLimitMiddleware(limiter Limiter, policy string, m *metrics.Metrics, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := limiter.Allow(c.Request.Context(), ClientIP(c.Request))
		if err == nil {
			c.Next()
			return
		}

		var rle *services.RateLimitError
		if errors.As(err, &rle) {
			m.RateLimited(policy)
			secs := int(math.Ceil(rle.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"retry_after": secs,
			})
			return
		}

		log.Error("rate limiter failed", zap.String("policy", policy), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}
