package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/scribegate/component"
	"github.com/kbukum/scribegate/logger"
)

// Component owns the tracer and meter providers.
type Component struct {
	cfg     Config
	res     Resource
	log     *logger.Logger
	mu      sync.Mutex
	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	metrics *Metrics
}

var _ component.Component = (*Component)(nil)

// NewComponent creates the observability component. Metrics are usable
// before Start; the otel global meter delegates them to the provider that
// Start installs.
func NewComponent(cfg Config, res Resource, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if res.Environment == "" {
		res.Environment = cfg.Environment
	}
	InitPropagator()
	c := &Component{cfg: cfg, res: res, log: log.WithComponent("observability")}
	m, err := NewMetrics(Meter())
	if err != nil {
		c.log.Warn("Metric instruments unavailable", map[string]interface{}{"error": err.Error()})
	}
	c.metrics = m
	return c
}

// Name returns the component name.
func (c *Component) Name() string { return "observability" }

// Metrics returns the gateway instruments. It may be nil; every Metrics
// method accepts a nil receiver.
func (c *Component) Metrics() *Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Start installs the OTLP exporters when enabled.
func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	tp, err := InitTracer(ctx, c.cfg, c.res)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	mp, err := InitMeter(ctx, c.cfg, c.res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("observability: %w", err)
	}

	c.mu.Lock()
	c.tp, c.mp = tp, mp
	c.mu.Unlock()

	c.log.Info("Telemetry export started", map[string]interface{}{
		"endpoint":    c.cfg.Endpoint,
		"sample_rate": c.cfg.SampleRate,
		"interval":    c.cfg.GetMetricsInterval().String(),
	})
	return nil
}

// Stop flushes and shuts down the providers.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	tp, mp := c.tp, c.mp
	c.tp, c.mp = nil, nil
	c.mu.Unlock()

	var errs []error
	if tp != nil {
		errs = append(errs, tp.Shutdown(ctx))
	}
	if mp != nil {
		errs = append(errs, mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Health reports whether telemetry export is active.
func (c *Component) Health(_ context.Context) component.Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := "disabled"
	if c.cfg.Enabled {
		msg = "exporting to " + c.cfg.Endpoint
		if c.tp == nil {
			return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: "not started"}
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: msg}
}

// Describe returns the startup summary line.
func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = fmt.Sprintf("otlp=%s sample=%.2f", c.cfg.Endpoint, c.cfg.SampleRate)
	}
	return component.Description{Name: "Telemetry", Type: "observability", Details: details}
}
