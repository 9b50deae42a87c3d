package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribegate/version"
)

// startTime records when the process started for uptime calculation.
var startTime = time.Now()

// Version returns a handler that reports build information and uptime.
func Version(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, struct {
			version.Info
			Uptime string `json:"uptime"`
		}{
			Info:   version.Get(serviceName),
			Uptime: time.Since(startTime).Round(time.Second).String(),
		})
	}
}
