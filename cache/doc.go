// Package cache defines the typed TTL store the gateway caches through,
// with an in-process implementation used when Redis is disabled.
// redis.TypedStore satisfies Store for the shared, cross-process case.
package cache
