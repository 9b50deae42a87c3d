package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribegate/logger"
)

// StatusPaths are the unauthenticated status routes. RequestLogger skips
// them so health polling does not drown the log.
var StatusPaths = map[string]bool{
	"/health":  true,
	"/livez":   true,
	"/readyz":  true,
	"/version": true,
}

// SlowRequest marks requests that took longer. Inline transcription of a
// long file legitimately exceeds it.
var SlowRequest = 5 * time.Second

// RequestLogger writes one line per request: 5xx at error, 4xx at warn and
// the rest at debug. Routes are logged as their template, so job ids and
// query strings stay out of the message.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return func(c *gin.Context) {
		if StatusPaths[c.Request.URL.Path] {
			c.Next()
			return
		}
		began := time.Now()
		c.Next()
		elapsed := time.Since(began)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"route":      route,
			"status":     status,
			"latency_ms": elapsed.Milliseconds(),
			"bytes_in":   c.Request.ContentLength,
			"bytes_out":  c.Writer.Size(),
			"client":     c.ClientIP(),
		}
		if elapsed > SlowRequest {
			fields["slow"] = true
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields["errors"] = errs.String()
		}

		l := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			l.Error("Request failed", fields)
		case status >= 400:
			l.Warn("Request rejected", fields)
		default:
			l.Debug("Request served", fields)
		}
	}
}
