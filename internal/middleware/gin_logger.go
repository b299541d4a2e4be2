package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/util"
	"go.uber.org/zap"
)

// GinLoggerMiddleware is a Gin middleware that logs HTTP requests with structured fields
// This replaces gin.Logger with structured logging
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		clientIP := c.ClientIP()
		userAgent := c.Request.UserAgent()

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("client_ip", clientIP),
			zap.Int("status", statusCode),
			zap.Int("response_size", c.Writer.Size()),
			zap.Duration("latency", time.Since(startTime)),
			zap.String("user_agent", userAgent),
		}

		// Set by RequestIDMiddleware
		if requestID, ok := c.Get("request_id"); ok {
			if id, ok := requestID.(string); ok {
				fields = append(fields, logger.WithRequestID(id))
			}
		}
		// Set by the auth middleware
		if userID, ok := c.Get(util.ContextUserID); ok {
			if id, ok := userID.(uint); ok {
				fields = append(fields, logger.WithUserID(id))
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case statusCode >= 500:
			logger.Log.Error("HTTP request", fields...)
		case statusCode >= 400:
			logger.Log.Warn("HTTP request", fields...)
		default:
			logger.Log.Info("HTTP request", fields...)
		}
	}
}
