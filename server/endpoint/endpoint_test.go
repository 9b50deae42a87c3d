package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribegate/component"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func checker(statuses ...component.HealthStatus) HealthChecker {
	return func(context.Context) []component.Health {
		out := make([]component.Health, len(statuses))
		for i, s := range statuses {
			out[i] = component.Health{Name: string(rune('a' + i)), Status: s}
		}
		return out
	}
}

func get(t *testing.T, h gin.HandlerFunc) (int, map[string]interface{}) {
	t.Helper()
	engine := gin.New()
	engine.GET("/", h)
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr.Code, body
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		checker  HealthChecker
		code     int
		status   string
		reported int
	}{
		{"no checker", nil, http.StatusOK, "healthy", 0},
		{"all healthy", checker(component.StatusHealthy, component.StatusHealthy), http.StatusOK, "healthy", 2},
		{"degraded", checker(component.StatusHealthy, component.StatusDegraded), http.StatusOK, "degraded", 2},
		{"unhealthy", checker(component.StatusDegraded, component.StatusUnhealthy), http.StatusServiceUnavailable, "unhealthy", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, Health("scribegate", tt.checker))
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, body["status"])
			assert.Equal(t, "scribegate", body["service"])
			components, _ := body["components"].([]interface{})
			assert.Len(t, components, tt.reported)
		})
	}
}

func TestReadiness(t *testing.T) {
	code, body := get(t, Readiness("scribegate", checker(component.StatusDegraded)))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])
	assert.NotContains(t, body, "failing")

	code, body = get(t, Readiness("scribegate", checker(component.StatusHealthy, component.StatusUnhealthy)))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", body["status"])
	assert.Equal(t, []interface{}{"b"}, body["failing"])
}

func TestLivenessAndVersion(t *testing.T) {
	code, body := get(t, Liveness("scribegate"))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body["status"])
	assert.NotContains(t, body, "components")
	assert.NotEmpty(t, body["timestamp"])

	code, body = get(t, Version("scribegate"))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "scribegate", body["service"])
	assert.NotEmpty(t, body["version"])
	assert.Contains(t, body, "uptime")
}
