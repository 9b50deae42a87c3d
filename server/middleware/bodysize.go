package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/scribegate/errors"
)

// DefaultMaxBodySize bounds request bodies when no size is configured.
const DefaultMaxBodySize = 100 * 1024 * 1024 // 100MB

// BodySizeLimit returns middleware that restricts the request body to the given
// size string (e.g. "10MB", "512KB", "1GB"). Requests that declare a larger
// Content-Length are rejected with 413 before the handler runs; larger bodies
// without a declared length fail when read past the limit.
func BodySizeLimit(maxSize string) Middleware {
	size := ParseSize(maxSize, DefaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > size {
				writeJSON(w, apperrors.PayloadTooLarge(size))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}

// GinBodySizeLimit returns BodySizeLimit as a Gin middleware.
func GinBodySizeLimit(maxSize string) gin.HandlerFunc {
	return GinWrap(BodySizeLimit(maxSize))
}

// ParseSize parses a byte size such as "10MB", "512KB", "1GB" or "2048".
// Empty or unparseable input yields defaultBytes.
func ParseSize(s string, defaultBytes int64) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return defaultBytes
	}

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "B"):
		s = s[:len(s)-1]
	}

	var val int64
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &val); err == nil && val > 0 {
		return val * multiplier
	}
	return defaultBytes
}
