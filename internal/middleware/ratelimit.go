package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sms-core-api/internal/service"
	"github.com/noah-isme/sms-core-api/pkg/config"
	appErrors "github.com/noah-isme/sms-core-api/pkg/errors"
	"github.com/noah-isme/sms-core-api/pkg/response"
)

type hitCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

var rateLimitExempt = map[string]struct{}{
	"/health":  {},
	"/ready":   {},
	"/metrics": {},
}

// RateLimit applies a fixed-window limit keyed by authenticated user, falling back
// to the client IP. Counter failures let the request through.
func RateLimit(counter hitCounter, cfg config.RateLimitConfig, metrics *service.MetricsService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if !cfg.Enabled || counter == nil || cfg.Requests <= 0 {
			c.Next()
			return
		}
		if _, ok := rateLimitExempt[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if claims := CurrentUser(c); claims != nil {
			key = "user:" + claims.UserID
		}

		count, reset, err := counter.Hit(c.Request.Context(), key, cfg.Window)
		if err != nil {
			logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(cfg.Requests) - count
		if remaining < 0 {
			remaining = 0
		}
		resetSeconds := strconv.Itoa(int(math.Ceil(reset.Seconds())))
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", resetSeconds)

		if count > int64(cfg.Requests) {
			metrics.RecordRateLimited()
			c.Header("Retry-After", resetSeconds)
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
