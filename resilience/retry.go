package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	apperrors "github.com/kbukum/scribegate/errors"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64
	// Jitter adds randomness to backoff (0.0 to 1.0).
	Jitter float64
	// RetryIf determines if an error should be retried.
	RetryIf func(error) bool
	// OnRetry is called before each retry.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

// DefaultRetryConfig returns the defaults used for remote calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryIf:        DefaultRetryIf,
	}
}

// DefaultRetryIf never retries context cancellation. An AppError is retried
// only when it is marked Retryable; any other error is retried.
func DefaultRetryIf(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Retryable
	}
	return true
}

// Policy is the configuration-file form of a RetryConfig.
type Policy struct {
	MaxAttempts    int     `mapstructure:"max_attempts"`
	InitialBackoff string  `mapstructure:"initial_backoff"`
	MaxBackoff     string  `mapstructure:"max_backoff"`
	Jitter         float64 `mapstructure:"jitter"`
}

// ApplyDefaults fills zero-valued fields.
func (p *Policy) ApplyDefaults() {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff == "" {
		p.InitialBackoff = "100ms"
	}
	if p.MaxBackoff == "" {
		p.MaxBackoff = "10s"
	}
}

// Validate checks the policy.
func (p *Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: max_attempts must be >= 1 (got: %d)", p.MaxAttempts)
	}
	for name, v := range map[string]string{"initial_backoff": p.InitialBackoff, "max_backoff": p.MaxBackoff} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("retry: invalid %s %q: %w", name, v, err)
		}
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		return fmt.Errorf("retry: jitter must be within [0,1] (got: %v)", p.Jitter)
	}
	return nil
}

// RetryConfig converts the policy. Unparseable durations fall back to the
// defaults.
func (p Policy) RetryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	if p.MaxAttempts > 0 {
		cfg.MaxAttempts = p.MaxAttempts
	}
	if d, err := time.ParseDuration(p.InitialBackoff); err == nil && d > 0 {
		cfg.InitialBackoff = d
	}
	if d, err := time.ParseDuration(p.MaxBackoff); err == nil && d > 0 {
		cfg.MaxBackoff = d
	}
	if p.Jitter > 0 {
		cfg.Jitter = p.Jitter
	}
	return cfg
}

// Retry executes fn until it succeeds, the error is not retryable, the
// attempts run out or ctx is done. It returns the last error.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.RetryIf(err) || attempt == cfg.MaxAttempts {
			break
		}

		backoff := calculateBackoff(attempt, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// calculateBackoff returns initial * factor^(attempt-1), jittered and capped.
func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt-1))

	if cfg.Jitter > 0 {
		jitterRange := backoff * cfg.Jitter
		backoff += (rand.Float64()*2 - 1) * jitterRange
	}
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	if backoff < 0 {
		backoff = float64(cfg.InitialBackoff)
	}
	return time.Duration(backoff)
}
