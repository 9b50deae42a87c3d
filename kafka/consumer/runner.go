package consumer

import (
	"context"

	"github.com/kbukum/scribegate/kafka"
)

// Runner binds a Consumer to a Handler so it satisfies kafka.Subscription.
type Runner struct {
	consumer *Consumer
	handler  kafka.Handler
}

var _ kafka.Subscription = (*Runner)(nil)

// AsRunner wraps c and h for kafka.Component.Subscribe.
func AsRunner(c *Consumer, h kafka.Handler) *Runner {
	return &Runner{consumer: c, handler: h}
}

func (r *Runner) Consume(ctx context.Context) error { return r.consumer.Consume(ctx, r.handler) }

func (r *Runner) Close() error { return r.consumer.Close() }

func (r *Runner) Topic() string { return r.consumer.Topic() }

// Lag reports the reader's distance from the partition head.
func (r *Runner) Lag() int64 { return r.consumer.Stats().Lag }
