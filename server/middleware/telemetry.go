package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/observability"
)

// Telemetry continues the caller's trace, opens a server span per request
// and records request metrics. A nil metrics skips the metrics.
func Telemetry(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := observability.StartSpan(ctx, c.Request.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		if id := logger.RequestIDFromContext(ctx); id != "" {
			observability.SetSpanAttribute(ctx, observability.AttrRequestID, id)
		}
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		metrics.RecordRequestStart(ctx)
		c.Next()

		status := c.Writer.Status()
		observability.SetSpanAttribute(ctx, "http.response.status_code", status)
		if last := c.Errors.Last(); last != nil && status >= 500 {
			observability.SetSpanError(ctx, last.Err)
		}
		metrics.RecordRequestEnd(ctx, route, c.Request.Method, status, time.Since(start))
	}
}
