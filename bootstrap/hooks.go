package bootstrap

import (
	"context"
	"errors"
	"fmt"
)

// Hook runs at a fixed point of the lifecycle. A failing startup hook
// aborts startup.
type Hook func(ctx context.Context) error

// OnStart adds hooks that run once the infrastructure components are up,
// before configuration.
func (a *App[C]) OnStart(hooks ...Hook) { a.onStart = append(a.onStart, hooks...) }

// OnReady adds hooks that run after every component has started and the
// ready check has been logged.
func (a *App[C]) OnReady(hooks ...Hook) { a.onReady = append(a.onReady, hooks...) }

// OnStop adds hooks that run before the components stop. Every stop hook
// runs even when an earlier one fails.
func (a *App[C]) OnStop(hooks ...Hook) { a.onStop = append(a.onStop, hooks...) }

// runHooks stops at the first failure.
func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d of %d: %w", i+1, len(hooks), err)
		}
	}
	return nil
}

func runStopHooks(ctx context.Context, hooks []Hook) error {
	var errs []error
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop hook %d of %d: %w", i+1, len(hooks), err))
		}
	}
	return errors.Join(errs...)
}
