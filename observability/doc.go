// Package observability wires OpenTelemetry tracing and metrics for the
// gateway: OTLP/HTTP exporters, the W3C trace-context propagator, and the
// instruments recorded by the HTTP layer, the formatter and job dispatch.
//
// The Component installs the global providers on Start and flushes them on
// Stop. When disabled, the otel no-op providers stay in place and every
// recording call is free.
//
//	obs := observability.NewComponent(cfg.Observability, cfg.Name, version.Get().Version, log)
//	app.RegisterComponent(obs)
//
//	ctx, span := observability.StartSpan(ctx, "dispatch.result")
//	defer span.End()
//	obs.Metrics().RecordFormat(ctx, "large-v2", "ok", elapsed)
package observability
