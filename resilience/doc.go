// Package resilience holds the failure-handling helpers used around
// scribegate's remote calls.
//
//   - Retry: exponential backoff with jitter for JWKS fetches, object
//     storage writes and queue publishes. AppErrors are retried only when
//     marked Retryable.
//   - Bulkhead: bounds how many inline transcriptions run at once.
//
//	policy := resilience.Policy{MaxAttempts: 4, InitialBackoff: "200ms"}
//	policy.ApplyDefaults()
//	err := resilience.RetryFunc(ctx, policy.RetryConfig(), func() error {
//	    return store.Put(ctx, key, audio)
//	})
package resilience
