package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware is a net/http decorator. CORS and the body size limit are
// written this way and mounted on Gin through GinWrap.
type Middleware func(http.Handler) http.Handler

// GinWrap mounts mw in a Gin chain. The request mw hands on replaces
// c.Request. If mw responds without calling on, the chain stops there.
func GinWrap(mw Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reached bool
		mw(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			reached = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
		if !reached {
			c.Abort()
		}
	}
}
