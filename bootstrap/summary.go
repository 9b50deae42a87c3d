package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kbukum/scribegate/component"
)

// ConsumerInfo describes a queue consumer for the startup summary.
type ConsumerInfo struct {
	Name  string
	Group string
	Topic string
}

// Summary renders the startup banner: infrastructure reported by
// Describable components, routes from RouteProviders, consumers, and live
// health.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	consumers       []ConsumerInfo
	out             io.Writer
}

// NewSummary creates a summary that writes to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
		out:         os.Stdout,
	}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackConsumer records a queue consumer.
func (s *Summary) TrackConsumer(name, group, topic string) {
	s.consumers = append(s.consumers, ConsumerInfo{Name: name, Group: group, Topic: topic})
}

// Display writes the summary, collecting details from the registry.
func (s *Summary) Display(ctx context.Context, registry *component.Registry) {
	w := s.out
	fmt.Fprintf(w, "\n%s %s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())
	if registry == nil {
		fmt.Fprintln(w)
		return
	}

	var infra []component.Description
	var routes []component.Route
	for _, c := range registry.All() {
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			if desc.Name == "" {
				desc.Name = c.Name()
			}
			infra = append(infra, desc)
		}
		if rp, ok := c.(component.RouteProvider); ok {
			routes = append(routes, rp.Routes()...)
		}
	}

	if len(infra) > 0 {
		fmt.Fprintf(w, "\nInfrastructure\n")
		for i, d := range infra {
			details := d.Details
			if d.Port > 0 {
				details = fmt.Sprintf("%s (:%d)", details, d.Port)
			}
			fmt.Fprintf(w, "   %s [%s] %s: %s\n", treePrefix(i, len(infra)), d.Type, d.Name, details)
		}
	}

	if len(routes) > 0 {
		fmt.Fprintf(w, "\nRoutes (%d)\n", len(routes))
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %-7s %s -> %s\n", treePrefix(i, len(routes)), r.Method, r.Path, r.Handler)
		}
	}

	if len(s.consumers) > 0 {
		fmt.Fprintf(w, "\nConsumers\n")
		for i, c := range s.consumers {
			fmt.Fprintf(w, "   %s %s (group: %s, topic: %s)\n", treePrefix(i, len(s.consumers)), c.Name, c.Group, c.Topic)
		}
	}

	health := registry.HealthAll(ctx)
	if len(health) > 0 {
		fmt.Fprintf(w, "\nHealth: %s\n", component.Overall(health))
		for i, h := range health {
			msg := ""
			if h.Message != "" {
				msg = " (" + h.Message + ")"
			}
			fmt.Fprintf(w, "   %s %s: %s%s\n", treePrefix(i, len(health)), h.Name, h.Status, msg)
		}
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}
