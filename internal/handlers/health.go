package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quillblog/backend/internal/logger"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// Health reports whether the database and cache are reachable
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{"database": "ok", "cache": "ok"}
	status := http.StatusOK

	if sqlDB, err := h.db.DB(); err != nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	} else if err := sqlDB.PingContext(ctx); err != nil {
		logger.Log.Warn("Health check: database ping failed", zap.Error(err))
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if err := h.store.Ping(ctx); err != nil {
		logger.Log.Warn("Health check: cache ping failed", zap.Error(err))
		checks["cache"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"timestamp": time.Now().UTC(),
		"service":   "quill-backend",
		"checks":    checks,
	})
}

// Metrics exposes Prometheus metrics
// GET /metrics
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
