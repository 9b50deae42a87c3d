// Package ratelimit implements the per-caller sliding-window request limit.
//
// The primary limiter keeps one Redis sorted set per key, scored by
// request time in milliseconds. Each decision runs ZREMRANGEBYSCORE,
// ZADD, ZCARD and PEXPIRE in one MULTI/EXEC transaction, so every request
// (allowed or not) is counted and the count never decreases inside a
// window.
//
// When Redis is disabled or a command fails, decisions fall back to an
// in-process sliding window. The fallback is per process: with several
// gateway replicas each one enforces the limit separately, so the
// effective limit is multiplied by the replica count. Every degraded
// decision is logged at warn level.
package ratelimit
