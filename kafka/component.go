package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/kbukum/scribegate/component"
	"github.com/kbukum/scribegate/logger"
)

// Subscription is a consume loop run by the Component, in practice the
// dispatcher's reader on the results topic.
type Subscription interface {
	Consume(ctx context.Context) error
	Close() error
	Topic() string
	// Lag is how many messages the reader is behind the partition head.
	Lag() int64
}

// Component owns the task producer and the result subscriptions. Health
// reports broker reachability and consumer lag.
type Component struct {
	cfg  Config
	log  *logger.Logger
	dial func(ctx context.Context) error

	mu       sync.Mutex
	producer io.Closer
	subs     []Subscription
	stop     context.CancelFunc
	loops    sync.WaitGroup
}

var _ component.Component = (*Component)(nil)

// NewComponent creates the kafka component. Wire it with SetProducer and
// Subscribe before Start.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	c := &Component{cfg: cfg, log: log.WithComponent("kafka")}
	c.dial = c.reachBroker
	return c
}

// SetProducer hands the producer to the component, which closes it on Stop.
func (c *Component) SetProducer(p io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.producer = p
}

// Subscribe adds a consume loop started by Start.
func (c *Component) Subscribe(s Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, s)
}

// Name returns the component name.
func (c *Component) Name() string { return "kafka" }

// Start runs every subscription in its own goroutine. The loops outlive ctx
// and end on Stop.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return nil
	}

	loopCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	c.stop = stop
	for _, s := range c.subs {
		c.loops.Add(1)
		go c.run(loopCtx, s)
	}
	c.log.Info("Kafka component started", map[string]interface{}{
		"brokers": c.cfg.Brokers,
		"topics":  c.topics(),
	})
	return nil
}

func (c *Component) run(ctx context.Context, s Subscription) {
	defer c.loops.Done()
	if err := s.Consume(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Error("Consumer stopped with error", map[string]interface{}{
			"topic": s.Topic(),
			"error": err.Error(),
		})
	}
}

// Stop ends the consume loops, then closes the readers and the producer.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop == nil {
		return nil
	}

	c.stop()
	c.loops.Wait()
	c.stop = nil

	var errs []error
	for _, s := range c.subs {
		errs = append(errs, s.Close())
	}
	c.subs = nil
	if c.producer != nil {
		errs = append(errs, c.producer.Close())
		c.producer = nil
	}
	c.log.Info("Kafka component stopped")
	return errors.Join(errs...)
}

// Health is unhealthy when no broker answers and degraded when a
// subscription lags by more than consumer.max_lag.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.cfg.Enabled {
		h.Message = "disabled"
		return h
	}

	c.mu.Lock()
	running := c.stop != nil
	subs := slices.Clone(c.subs)
	c.mu.Unlock()
	if !running {
		h.Status, h.Message = component.StatusUnhealthy, "kafka not started"
		return h
	}
	if err := c.dial(ctx); err != nil {
		h.Status, h.Message = component.StatusUnhealthy, err.Error()
		return h
	}

	limit := c.cfg.Consumer.MaxLag
	var behind []string
	for _, s := range subs {
		if lag := s.Lag(); limit > 0 && lag > limit {
			behind = append(behind, fmt.Sprintf("%s lag %d exceeds %d", s.Topic(), lag, limit))
		}
	}
	if len(behind) > 0 {
		h.Status, h.Message = component.StatusDegraded, strings.Join(behind, "; ")
	}
	return h
}

// reachBroker succeeds as soon as one broker returns cluster metadata.
func (c *Component) reachBroker(ctx context.Context) error {
	dialer, err := CreateDialer(&c.cfg)
	if err != nil {
		return err
	}
	var last error
	for _, addr := range c.cfg.Brokers {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			last = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err == nil {
			return nil
		}
		last = err
	}
	return fmt.Errorf("broker unreachable: %w", last)
}

// Describe lists brokers, results topics with their lag, and whether tasks
// are published.
func (c *Component) Describe() component.Description {
	c.mu.Lock()
	defer c.mu.Unlock()

	parts := []string{"brokers=" + strings.Join(c.cfg.Brokers, ",")}
	for _, s := range c.subs {
		parts = append(parts, fmt.Sprintf("results=%s lag=%d", s.Topic(), s.Lag()))
	}
	if c.producer != nil {
		parts = append(parts, "tasks=on")
	}
	if c.cfg.TLS.Configured() {
		parts = append(parts, "tls")
	}
	if c.cfg.SASL.Enabled() {
		parts = append(parts, "sasl="+c.cfg.SASL.Mechanism)
	}
	return component.Description{Name: "Kafka", Type: "kafka", Details: strings.Join(parts, " ")}
}

func (c *Component) topics() []string {
	topics := make([]string, 0, len(c.subs))
	for _, s := range c.subs {
		topics = append(topics, s.Topic())
	}
	return topics
}
