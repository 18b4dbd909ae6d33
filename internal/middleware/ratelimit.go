package middleware

import (
	"conference_backend/internal/logger"
	"conference_backend/internal/metrics"
	"conference_backend/internal/ratelimit"
	"conference_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// RateLimit ограничивает частоту запросов с одного IP.
// Если бэкенд лимитера недоступен, запрос пропускается.
func RateLimit(limiter ratelimit.Limiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		ok, err := limiter.Allow(ctx, c.ClientIP())
		if err != nil {
			logger.CtxWithError(ctx, "rate limiter unavailable", err, "path", c.Request.URL.Path)
			c.Next()
			return
		}
		if !ok {
			m.RateLimited(c.FullPath())
			logger.CtxWarn(ctx, "rate limit exceeded", "ip", c.ClientIP(), "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
