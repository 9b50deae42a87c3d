package resilience

import (
	"context"
	"time"

	apperrors "github.com/kbukum/scribegate/errors"
)

// BulkheadConfig sizes a bulkhead.
type BulkheadConfig struct {
	// Name is reported as the "pool" detail of rejections.
	Name          string        `mapstructure:"name"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	// MaxWait bounds the wait for a free slot. Zero rejects at once.
	MaxWait time.Duration `mapstructure:"max_wait"`
}

// Bulkhead caps concurrent work with a counting semaphore.
type Bulkhead struct {
	name    string
	maxWait time.Duration
	slots   chan struct{}
}

// NewBulkhead creates a bulkhead. MaxConcurrent below one means one.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	n := cfg.MaxConcurrent
	if n < 1 {
		n = 1
	}
	return &Bulkhead{name: cfg.Name, maxWait: cfg.MaxWait, slots: make(chan struct{}, n)}
}

// Execute runs fn in a slot. When no slot frees up within MaxWait it
// returns a CAPACITY_EXCEEDED AppError without calling fn. A cancelled ctx
// returns ctx.Err().
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer func() { <-b.slots }()
	return fn()
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	default:
	}
	if b.maxWait <= 0 {
		return b.rejection()
	}

	wait := time.NewTimer(b.maxWait)
	defer wait.Stop()
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-wait.C:
		return b.rejection()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulkhead) rejection() *apperrors.AppError {
	return apperrors.CapacityExceeded(b.name).
		WithDetail("max_concurrent", cap(b.slots)).
		WithDetail("waited_ms", b.maxWait.Milliseconds())
}

// InUse returns the number of occupied slots.
func (b *Bulkhead) InUse() int { return len(b.slots) }

// MaxConcurrent returns the slot count.
func (b *Bulkhead) MaxConcurrent() int { return cap(b.slots) }

// IsRejection reports whether err is a bulkhead rejection.
func IsRejection(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeCapacityExceeded)
}
