// Package endpoint serves the unauthenticated health and build routes.
package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribegate/component"
)

// HealthChecker returns health status for registered components.
type HealthChecker func(ctx context.Context) []component.Health

type report struct {
	Status     string             `json:"status"`
	Service    string             `json:"service"`
	Timestamp  string             `json:"timestamp"`
	Components []component.Health `json:"components,omitempty"`
	Failing    []string           `json:"failing,omitempty"`
}

func respond(c *gin.Context, service string, ok bool, r report) {
	r.Service = service
	r.Timestamp = time.Now().UTC().Format(time.RFC3339)
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, r)
}

func check(c *gin.Context, checker HealthChecker) []component.Health {
	if checker == nil {
		return nil
	}
	return checker(c.Request.Context())
}

// Health reports every component and their overall status. Only an
// unhealthy component turns the answer into a 503.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		reports := check(c, checker)
		overall := component.Overall(reports)
		respond(c, serviceName, overall != component.StatusUnhealthy,
			report{Status: string(overall), Components: reports})
	}
}

// Liveness answers as long as the process serves HTTP.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, serviceName, true, report{Status: "alive"})
	}
}

// Readiness lists unhealthy components by name. Degraded ones still take
// traffic.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var failing []string
		for _, h := range check(c, checker) {
			if h.Status == component.StatusUnhealthy {
				failing = append(failing, h.Name)
			}
		}
		if len(failing) > 0 {
			respond(c, serviceName, false, report{Status: "not_ready", Failing: failing})
			return
		}
		respond(c, serviceName, true, report{Status: "ready"})
	}
}
