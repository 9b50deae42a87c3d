package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/logger"
)

// Recovery turns a handler panic into a 500 INTERNAL_ERROR and logs the
// stack. A client that went away mid-response (http.ErrAbortHandler) is
// not logged.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				c.Abort()
				return
			}
			log.WithContext(c.Request.Context()).Error("Handler panicked", map[string]interface{}{
				"panic":  fmt.Sprint(rec),
				"route":  c.FullPath(),
				"method": c.Request.Method,
				"stack":  string(debug.Stack()),
			})
			if c.Writer.Written() {
				c.Abort()
				return
			}
			abort(c, apperrors.Internal(fmt.Errorf("panic: %v", rec)))
		}()
		c.Next()
	}
}
