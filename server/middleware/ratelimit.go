package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribegate/auth"
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/ratelimit"
)

// RateLimit returns a Gin middleware that rejects requests over the
// limiter's budget with 429. keyFunc defaults to UserBasedKey.
func RateLimit(limiter ratelimit.Limiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = UserBasedKey
	}
	return func(c *gin.Context) {
		d := limiter.Allow(c.Request.Context(), keyFunc(c))
		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			abort(c, apperrors.RateLimited().WithDetail("retry_after_seconds", secs))
			return
		}
		c.Next()
	}
}

// IPBasedKey keys requests by client IP.
func IPBasedKey(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// UserBasedKey keys authenticated requests by user and falls back to the
// client IP.
func UserBasedKey(c *gin.Context) string {
	if p, ok := auth.PrincipalFrom(c.Request.Context()); ok && p.UserID != "" {
		return "user:" + p.UserID
	}
	return IPBasedKey(c)
}
