package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/templatestore/license-service/internal/handler/dto"
	"github.com/templatestore/license-service/internal/metrics"
	"github.com/templatestore/license-service/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimiter decides whether a client address may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, scope, ip string, cfg ratelimit.LimitConfig) (*ratelimit.Decision, error)
}

// RateLimitMiddleware throttles by client IP. It fails open when the limiter
// backend is unreachable.
func RateLimitMiddleware(limiter RateLimiter, scope string, cfg ratelimit.LimitConfig, m *metrics.Metrics, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("RateLimitMiddleware")
	return func(c *gin.Context) {
		decision, err := limiter.Allow(c.Request.Context(), scope, c.ClientIP(), cfg)
		if err != nil {
			log.Warn("Rate limiter unavailable, allowing request", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			m.RateLimited.Inc()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.APIErrorResponse{
				Code:    "RATE_LIMITED",
				Message: "Too many requests. Try again later.",
			})
			return
		}

		c.Next()
	}
}
