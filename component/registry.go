package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/scribegate/logger"
)

const (
	DefaultStopTimeout   = 10 * time.Second
	DefaultHealthTimeout = 3 * time.Second
)

type slot struct {
	c       Component
	running bool
}

// Registry owns the infrastructure components of the gateway. It starts
// them in registration order and stops them in reverse.
type Registry struct {
	mu     sync.RWMutex
	slots  []*slot
	byName map[string]*slot
	log    *logger.Logger

	stopTimeout   time.Duration
	healthTimeout time.Duration
}

func NewRegistry() *Registry {
	return &Registry{
		byName:        make(map[string]*slot),
		log:           logger.WithComponent("registry"),
		stopTimeout:   DefaultStopTimeout,
		healthTimeout: DefaultHealthTimeout,
	}
}

// SetTimeouts bounds each Stop and each Health call. Non-positive values
// keep the current setting.
func (r *Registry) SetTimeouts(stop, health time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stop > 0 {
		r.stopTimeout = stop
	}
	if health > 0 {
		r.healthTimeout = health
	}
}

// Register appends c. Dependencies must be registered before their users.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := c.Name()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("component %s already registered", name)
	}
	s := &slot{c: c}
	r.slots = append(r.slots, s)
	r.byName[name] = s
	r.log.Debug("Component registered", map[string]interface{}{"component": name})
	return nil
}

// StartAll starts every component not yet running and returns the first
// failure. Components started before it stay running for StopAll.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.Info("Starting components", map[string]interface{}{"count": len(r.slots)})
	for _, s := range r.slots {
		if s.running {
			continue
		}
		began := time.Now()
		if err := s.c.Start(ctx); err != nil {
			r.log.Error("Component start failed", logger.ErrorFields(s.c.Name(), err))
			return fmt.Errorf("start %s: %w", s.c.Name(), err)
		}
		s.running = true
		r.log.Debug("Component started", logger.DurationFields(s.c.Name(), time.Since(began)))
	}
	return nil
}

// StopAll stops running components in reverse order. Each Stop gets its
// own deadline and every failure is returned.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for i := len(r.slots) - 1; i >= 0; i-- {
		s := r.slots[i]
		if !s.running {
			continue
		}
		stopCtx, cancel := context.WithTimeout(ctx, r.stopTimeout)
		err := s.c.Stop(stopCtx)
		cancel()
		s.running = false
		if err != nil {
			r.log.Error("Component stop failed", logger.ErrorFields(s.c.Name(), err))
			errs = append(errs, fmt.Errorf("stop %s: %w", s.c.Name(), err))
		}
	}
	r.log.Info("Components stopped", map[string]interface{}{"failures": len(errs)})
	return errors.Join(errs...)
}

// HealthAll checks every component concurrently and reports in
// registration order. A check that outlives the health timeout is reported
// unhealthy without waiting for it.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	slots := append([]*slot(nil), r.slots...)
	timeout := r.healthTimeout
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reports := make([]Health, len(slots))
	var wg sync.WaitGroup
	for i, s := range slots {
		wg.Go(func() { reports[i] = check(ctx, s.c) })
	}
	wg.Wait()
	return reports
}

func check(ctx context.Context, c Component) Health {
	done := make(chan Health, 1)
	go func() { done <- c.Health(ctx) }()
	var h Health
	select {
	case h = <-done:
	case <-ctx.Done():
		h = Health{Status: StatusUnhealthy, Message: "health check timed out"}
	}
	if h.Name == "" {
		h.Name = c.Name()
	}
	return h
}

// Get returns the component registered as name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.byName[name]; ok {
		return s.c
	}
	return nil
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Component, len(r.slots))
	for i, s := range r.slots {
		out[i] = s.c
	}
	return out
}
