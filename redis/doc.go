// Package redis wraps go-redis for scribegate: connection configuration,
// a lifecycle component with ping-based health, and TypedStore, a JSON
// key/value store with TTL used for the job status cache and the JWKS
// key cache.
//
//	comp := redis.NewComponent(cfg, log)
//	registry.Register(comp)
//	...
//	statuses := redis.NewTypedStore[jobs.StatusSnapshot](comp.Client(), "scribegate:job")
//
// The rate limiter uses Client.Unwrap for sorted-set pipelines.
package redis
