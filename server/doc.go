// Package server runs the gateway's HTTP surface: a Gin engine behind an h2c
// handler, wrapped as a lifecycle component.
//
// # Middleware
//
// ApplyMiddleware installs, in order (server/middleware):
//
//   - Recovery: panic recovery answering INTERNAL_ERROR
//   - RequestID: X-Request-Id propagation into the logger context
//   - Telemetry: trace extraction, server spans and request metrics
//   - RequestLogger: one log line per request, level by status
//   - CORS and BodySizeLimit
//
// Auth, RequirePermission and RateLimit are attached per route group by the
// api package.
//
// # Endpoints
//
// RegisterDefaultEndpoints adds the unauthenticated status routes (server/endpoint):
//
//   - /health: aggregated component health
//   - /livez: liveness
//   - /readyz: readiness
//   - /version: build information and uptime
package server
