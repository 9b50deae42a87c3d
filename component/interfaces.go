package component

import "context"

type HealthStatus string

const (
	StatusHealthy HealthStatus = "healthy"
	// StatusDegraded means the component serves with reduced capability,
	// such as Redis unreachable while status reads fall back to sqlite.
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// rank orders statuses from best to worst.
func (s HealthStatus) rank() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	}
	return 2
}

// Health is one component's answer to a health check, as served by /health.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a piece of infrastructure the gateway starts before serving
// and stops on shutdown: the database, Redis, Kafka, storage, the HTTP
// server. Start must be idempotent. Stop must tolerate a component that
// never started.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is a component's line in the startup summary.
type Description struct {
	// Name defaults to the component's Name().
	Name string
	// Type groups lines: "database", "redis", "kafka", "storage", "server".
	Type    string
	Details string
	Port    int
}

// Describable components appear in the startup summary.
type Describable interface {
	Describe() Description
}

// Route is one HTTP route in the startup summary.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider is implemented by the HTTP server component.
type RouteProvider interface {
	Routes() []Route
}

// Overall is the worst status among reports, healthy when there are none.
func Overall(reports []Health) HealthStatus {
	worst := StatusHealthy
	for _, h := range reports {
		if h.Status.rank() > worst.rank() {
			worst = h.Status
		}
	}
	return worst
}
