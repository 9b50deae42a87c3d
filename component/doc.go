// Package component defines the lifecycle contract shared by scribegate's
// infrastructure: the database, redis, kafka, object storage, telemetry and
// the HTTP server all implement Component and are driven by a Registry.
//
// Components start in registration order and stop in reverse order. Health
// reports from every component are aggregated for the /health and /readyz
// endpoints.
package component
