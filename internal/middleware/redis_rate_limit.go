package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/errors"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/metrics"
	"github.com/quillblog/backend/internal/util"
	"go.uber.org/zap"
)

// WindowRateLimitMiddleware is a fixed-window limiter over the shared cache
// store, so it holds across server instances when the store is Redis.
// name separates the counters of different routes.
func WindowRateLimitMiddleware(store cache.Store, name string, config RateLimitConfig) gin.HandlerFunc {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = clientIPKey
	}

	return func(c *gin.Context) {
		clientKey := keyFunc(c)
		key := fmt.Sprintf("rate_limit:%s:%s", name, clientKey)
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := store.IncrWindow(ctx, key, config.Window)
		if err != nil {
			// A broken limiter must not open the endpoint
			logger.Log.Error("Rate limit check failed - rejecting request",
				zap.String("key", clientKey),
				zap.Error(err),
			)
			util.RespondAbort(c, errors.ServiceUnavailable("rate limiter"))
			return
		}

		remaining := int64(config.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(config.Limit) {
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(c.ClientIP()),
				zap.String("limiter", name),
				zap.Int("max_requests", config.Limit),
				zap.Int64("current_requests", count),
			)
			metrics.RecordRateLimitExceeded(name, c.Request.Method)
			c.Header("Retry-After", strconv.Itoa(int(config.Window.Seconds())))
			util.RespondAbort(c, errors.RateLimited(""))
			return
		}

		c.Next()
	}
}

// SmartRateLimit counts in the shared store when it is Redis. Without a store,
// or with the in-process MemoryStore, limits are per-process anyway and use
// token buckets instead.
func SmartRateLimit(store cache.Store, name string, config RateLimitConfig) gin.HandlerFunc {
	switch store.(type) {
	case nil, *cache.MemoryStore:
		logger.Log.Debug("Using in-process rate limiter", zap.String("limiter", name))
		return NewRateLimiter(config)
	}
	return WindowRateLimitMiddleware(store, name, config)
}

