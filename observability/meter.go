package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeter creates an OTLP/HTTP meter provider and installs it globally.
// The caller must Shutdown the returned provider.
func InitMeter(ctx context.Context, cfg Config, res Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	r, err := newResource(res)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.GetMetricsInterval()))),
		sdkmetric.WithResource(r),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns the gateway meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// Metrics holds the gateway's metric instruments.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
	formatDuration  metric.Float64Histogram
	jobsSubmitted   metric.Int64Counter
	jobsFinished    metric.Int64Counter
	errorTotal      metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestTotal, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Handled HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.server.requests counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.server.duration histogram: %w", err)
	}

	requestActive, err := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("In-flight HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.server.active_requests counter: %w", err)
	}

	formatDuration, err := meter.Float64Histogram("formatter.duration",
		metric.WithDescription("Time spent formatting raw results"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating formatter.duration histogram: %w", err)
	}

	jobsSubmitted, err := meter.Int64Counter("jobs.submitted",
		metric.WithDescription("Accepted transcription jobs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating jobs.submitted counter: %w", err)
	}

	jobsFinished, err := meter.Int64Counter("jobs.finished",
		metric.WithDescription("Jobs reaching a terminal state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating jobs.finished counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("errors",
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating errors counter: %w", err)
	}

	return &Metrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestActive:   requestActive,
		formatDuration:  formatDuration,
		jobsSubmitted:   jobsSubmitted,
		jobsFinished:    jobsFinished,
		errorTotal:      errorTotal,
	}, nil
}

// RecordRequestStart increments the in-flight request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements in-flight requests and records the request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.route", route),
		attribute.String("http.method", method),
		attribute.Int("http.status_code", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("http.route", route),
		attribute.String("http.method", method),
	))
}

// RecordFormat records one formatter run; status is "ok" or "error".
func (m *Metrics) RecordFormat(ctx context.Context, model, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.formatDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("status", status),
	))
}

// RecordJobSubmitted counts an accepted job by dispatch mode.
func (m *Metrics) RecordJobSubmitted(ctx context.Context, model, mode string) {
	if m == nil {
		return
	}
	m.jobsSubmitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("mode", mode),
	))
}

// RecordJobFinished counts a job reaching status.
func (m *Metrics) RecordJobFinished(ctx context.Context, status, errorCode string) {
	if m == nil {
		return
	}
	m.jobsFinished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("error_code", errorCode),
	))
}

// RecordError counts an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
