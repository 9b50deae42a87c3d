package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/scribegate/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	healthTimeout   time.Duration
	summaryOut      io.Writer
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the application logger instead of building one from the
// config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = &d }
}

// WithHealthTimeout bounds each component health check.
func WithHealthTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.healthTimeout = d }
}

// WithSummaryWriter redirects the startup summary. Use io.Discard to
// suppress it.
func WithSummaryWriter(w io.Writer) Option {
	return func(o *appOptions) { o.summaryOut = w }
}
