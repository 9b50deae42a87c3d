package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribegate/component"
	"github.com/kbukum/scribegate/logger"
)

type stubProducer struct{ closed atomic.Int32 }

func (p *stubProducer) Close() error { p.closed.Add(1); return nil }

type stubResults struct {
	topic   string
	lag     atomic.Int64
	started chan struct{}
	once    sync.Once
	closed  atomic.Int32
}

func newStubResults(topic string) *stubResults {
	return &stubResults{topic: topic, started: make(chan struct{})}
}

func (r *stubResults) Consume(ctx context.Context) error {
	r.once.Do(func() { close(r.started) })
	<-ctx.Done()
	return ctx.Err()
}

func (r *stubResults) Close() error  { r.closed.Add(1); return nil }
func (r *stubResults) Topic() string { return r.topic }
func (r *stubResults) Lag() int64    { return r.lag.Load() }

func queueConfig() Config {
	return Config{Enabled: true, Brokers: []string{"127.0.0.1:1"}, Consumer: ConsumerConfig{MaxLag: 100}}
}

func TestComponent_StopClosesReadersThenProducer(t *testing.T) {
	c := NewComponent(queueConfig(), logger.Nop())
	prod := &stubProducer{}
	results := newStubResults("transcription.results")
	c.SetProducer(prod)
	c.Subscribe(results)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	cancel()
	<-results.started

	require.NoError(t, c.Stop(context.Background()))
	assert.Equal(t, int32(1), results.closed.Load())
	assert.Equal(t, int32(1), prod.closed.Load())

	require.NoError(t, c.Stop(context.Background()))
	assert.Equal(t, int32(1), prod.closed.Load(), "second Stop is a no-op")
}

func TestComponent_HealthReportsLag(t *testing.T) {
	c := NewComponent(queueConfig(), logger.Nop())
	c.dial = func(context.Context) error { return nil }
	results := newStubResults("transcription.results")
	c.Subscribe(results)

	h := c.Health(context.Background())
	assert.Equal(t, component.StatusUnhealthy, h.Status)
	assert.Equal(t, "kafka not started", h.Message)

	require.NoError(t, c.Start(context.Background()))
	defer c.Stop(context.Background())

	results.lag.Store(100)
	assert.Equal(t, component.StatusHealthy, c.Health(context.Background()).Status)

	results.lag.Store(250)
	h = c.Health(context.Background())
	assert.Equal(t, component.StatusDegraded, h.Status)
	assert.Equal(t, "transcription.results lag 250 exceeds 100", h.Message)
}

func TestComponent_HealthIgnoresLagWithoutLimit(t *testing.T) {
	cfg := queueConfig()
	cfg.Consumer.MaxLag = 0
	c := NewComponent(cfg, logger.Nop())
	c.dial = func(context.Context) error { return nil }
	results := newStubResults("transcription.results")
	results.lag.Store(1_000_000)
	c.Subscribe(results)

	require.NoError(t, c.Start(context.Background()))
	defer c.Stop(context.Background())
	assert.Equal(t, component.StatusHealthy, c.Health(context.Background()).Status)
}

func TestComponent_HealthBrokerDown(t *testing.T) {
	disabled := NewComponent(Config{}, logger.Nop())
	h := disabled.Health(context.Background())
	assert.Equal(t, component.StatusHealthy, h.Status)
	assert.Equal(t, "disabled", h.Message)

	cfg := queueConfig()
	cfg.Brokers = []string{"127.0.0.1:1", "127.0.0.1:2"}
	c := NewComponent(cfg, logger.Nop())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop(context.Background())

	h = c.Health(context.Background())
	assert.Equal(t, component.StatusUnhealthy, h.Status)
	assert.Contains(t, h.Message, "broker unreachable")
}

func TestComponent_StopJoinsCloseErrors(t *testing.T) {
	c := NewComponent(queueConfig(), logger.Nop())
	c.SetProducer(closerFunc(func() error { return errors.New("flush failed") }))
	require.NoError(t, c.Start(context.Background()))

	err := c.Stop(context.Background())
	assert.ErrorContains(t, err, "flush failed")
}

func TestComponent_Describe(t *testing.T) {
	cfg := queueConfig()
	cfg.Brokers = []string{"kafka-0:9093", "kafka-1:9093"}
	cfg.SASL = SASLConfig{Mechanism: "SCRAM-SHA-512", Username: "gateway"}
	c := NewComponent(cfg, logger.Nop())
	results := newStubResults("transcription.results")
	results.lag.Store(7)
	c.Subscribe(results)
	c.SetProducer(&stubProducer{})

	assert.Equal(t,
		"brokers=kafka-0:9093,kafka-1:9093 results=transcription.results lag=7 tasks=on sasl=SCRAM-SHA-512",
		c.Describe().Details)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
