package ratelimit

import (
	"fmt"
	"net/http"

	"popup-server/internal/observability"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware that limits requests per client IP.
// The key prefix keeps separate counters per endpoint group.
func (s *Service) Middleware(keyPrefix string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		key := fmt.Sprintf("%s:%s", keyPrefix, observability.ClientIP(c))

		result, err := s.CheckRateLimit(ctx, key, limit)
		if err != nil {
			// A limiter failure should not take the storefront popup down.
			s.logger.Error(ctx, "rate limit check failed", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))

		if !result.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", result.RetryAfterMs/1000))
			warnCtx := observability.WithFields(ctx,
				observability.Field{Key: "rate_key", Value: key},
				observability.Field{Key: "limit", Value: result.Limit},
			)
			s.logger.Warn(warnCtx, "rate limit exceeded")

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": result.RetryAfterMs / 1000,
				"reset_at":    result.ResetAt.Unix(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
