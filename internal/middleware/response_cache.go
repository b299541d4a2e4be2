package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/metrics"
	"go.uber.org/zap"
)

// ResponseCacheMiddleware caches successful GET responses with configurable TTL
// when cacheable reports the request is safe to share. Only 2xx responses are
// stored. Adds X-Cache: HIT/MISS header for debugging.
func ResponseCacheMiddleware(store cache.Store, ttl time.Duration, cacheable func(c *gin.Context) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || store == nil || (cacheable != nil && !cacheable(c)) {
			c.Next()
			return
		}

		cacheKey := responseCacheKey(c.Request.URL.Path, c.Request.URL.RawQuery)
		ctx := c.Request.Context()

		startTime := time.Now()
		cached, err := store.Get(ctx, cacheKey)
		metrics.RecordCacheOperation("GET", "response_cache", time.Since(startTime))

		if err == nil {
			metrics.RecordCacheHit("response_cache")
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			c.Abort()
			return
		}
		metrics.RecordCacheMiss("response_cache")

		writer := &cachedResponseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer
		c.Header("X-Cache", "MISS")

		c.Next()

		status := writer.Status()
		if status < 200 || status >= 300 || writer.body.Len() == 0 {
			return
		}
		setStart := time.Now()
		if err := store.Set(ctx, cacheKey, writer.body.String(), ttl); err != nil {
			logger.Log.Debug("Failed to write response to cache",
				logger.WithCacheKey(cacheKey),
				zap.Error(err),
			)
			return
		}
		metrics.RecordCacheOperation("SET", "response_cache", time.Since(setStart))
	}
}

func responseCacheKey(path, query string) string {
	key := fmt.Sprintf("response:%s", path)
	if query != "" {
		key = fmt.Sprintf("%s:%s", key, query)
	}
	return key
}

// cachedResponseWriter intercepts response writes to capture the response body
type cachedResponseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *cachedResponseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *cachedResponseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
