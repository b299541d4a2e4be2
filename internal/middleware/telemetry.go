package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware returns a middleware that traces HTTP requests using OpenTelemetry
// It wraps the official otelgin middleware and adds request attributes
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	base := otelgin.Middleware(serviceName)

	return func(c *gin.Context) {
		base(c)
		enrichSpan(c)
	}
}

// enrichSpan copies request identity and outcome onto the active span
func enrichSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}

	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok {
			span.SetAttributes(attribute.String("request.id", id))
		}
	}
	if userID, ok := c.Get(util.ContextUserID); ok {
		if id, ok := userID.(uint); ok {
			span.SetAttributes(attribute.Int64("user.id", int64(id)))
		}
	}
	if linkType := c.Query("linktype"); linkType != "" {
		span.SetAttributes(attribute.String("sidebar.linktype", linkType))
	}
	if date := c.Query("date"); date != "" {
		span.SetAttributes(attribute.String("owntracks.date", date))
	}

	for _, ginErr := range c.Errors {
		if ginErr.Err != nil {
			span.RecordError(ginErr.Err, trace.WithStackTrace(true))
			span.SetStatus(codes.Error, ginErr.Error())
		}
	}

	if status := c.Writer.Status(); status >= 500 {
		span.SetStatus(codes.Error, "server error")
	}
	if size := c.Writer.Size(); size > 0 {
		span.SetAttributes(attribute.Int("http.response.size_bytes", size))
	}
}
