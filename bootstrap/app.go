package bootstrap

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/scribegate/component"
	"github.com/kbukum/scribegate/logger"
)

// DefaultGracefulTimeout bounds the whole shutdown sequence.
const DefaultGracefulTimeout = 15 * time.Second

var shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// App runs the gateway's components under one lifecycle. C is the config type.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	gracefulTimeout time.Duration
	onConfigure     []func(ctx context.Context, app *App[C]) error
	onStart         []Hook
	onReady         []Hook
	onStop          []Hook
}

// NewApp validates cfg after applying its defaults and sets up logging.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	svc := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	app := &App[C]{
		Name:            svc.Name,
		Version:         svc.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		Logger:          o.logger,
		Summary:         NewSummary(svc.Name, svc.Version),
		gracefulTimeout: DefaultGracefulTimeout,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	app.Components.SetTimeouts(app.gracefulTimeout, o.healthTimeout)
	if app.Logger == nil {
		app.Logger = logger.Init(svc.Logging, svc.Name)
	}
	app.Summary.out = cmp.Or(o.summaryOut, app.Summary.out)
	return app, nil
}

// RegisterComponent queues c for startup. Components start in the order
// they were registered and stop in reverse.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure runs fn once infrastructure is up. It typically wires
// handlers to the started stores and registers the HTTP server.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// ReadyCheck fails while any component is not healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var bad []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		s := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			s += "(" + h.Message + ")"
		}
		bad = append(bad, s)
	}
	if len(bad) > 0 {
		return fmt.Errorf("unhealthy components: %s", strings.Join(bad, ", "))
	}
	return nil
}

// Run starts everything and blocks until a shutdown signal arrives or ctx
// ends, then stops gracefully.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	a.Logger.Info("Gateway ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.stop()
}

// RunTask runs task with every component started and stops them when it
// returns. A shutdown signal cancels the task. The task's error wins
// over a shutdown error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	taskCtx, cancel := signal.NotifyContext(ctx, shutdownSignals...)
	defer cancel()

	taskErr := task(taskCtx)
	stopErr := a.stop()
	return cmp.Or(taskErr, stopErr)
}

// start walks the startup phases. Components registered while configuring
// are started by the second component phase. On failure everything that
// started is stopped again.
func (a *App[C]) start(ctx context.Context) error {
	began := time.Now()
	a.Logger.Info("Starting gateway", map[string]interface{}{"name": a.Name, "version": a.Version})

	phases := []struct {
		name string
		run  func() error
	}{
		{"start components", func() error { return a.Components.StartAll(ctx) }},
		{"start hooks", func() error { return runHooks(ctx, a.onStart) }},
		{"configure", func() error { return a.configure(ctx) }},
		{"start configured components", func() error { return a.Components.StartAll(ctx) }},
		{"ready hooks", func() error {
			if err := a.ReadyCheck(ctx); err != nil {
				a.Logger.Warn("Ready check reported issues", map[string]interface{}{"error": err.Error()})
			}
			return runHooks(ctx, a.onReady)
		}},
	}
	for _, p := range phases {
		if err := p.run(); err != nil {
			a.abort()
			return fmt.Errorf("startup: %s: %w", p.name, err)
		}
	}

	a.Summary.SetStartupDuration(time.Since(began))
	a.Summary.Display(ctx, a.Components)
	return nil
}

func (a *App[C]) configure(ctx context.Context) error {
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (a *App[C]) abort() {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Cleanup after failed startup", map[string]interface{}{"error": err.Error()})
	}
}

// WaitForSignal blocks until SIGINT or SIGTERM, returning it, or until ctx
// ends, returning nil.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, shutdownSignals...)
	defer signal.Stop(sigs)

	select {
	case sig := <-sigs:
		a.Logger.Info("Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// stop runs the stop hooks, which drain the result consumer, then stops
// the components. Both share one graceful deadline.
func (a *App[C]) stop() error {
	a.Logger.Info("Shutting down gateway", map[string]interface{}{"timeout": a.gracefulTimeout.String()})
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	err := errors.Join(runStopHooks(ctx, a.onStop), a.Components.StopAll(ctx))
	if err != nil {
		a.Logger.Error("Shutdown completed with errors", map[string]interface{}{"error": err.Error()})
		return err
	}
	a.Logger.Info("Shutdown complete")
	return nil
}
