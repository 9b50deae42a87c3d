// Package producer publishes messages to Kafka.
package producer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/kbukum/scribegate/kafka"
	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/resilience"
)

// ErrClosed is returned when publishing on a closed producer.
var ErrClosed = errors.New("kafka producer is closed")

// Writer is the subset of *kafkago.Writer the producer uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.WriterStats
	Close() error
}

// Producer wraps a kafka-go Writer with TLS/SASL, retries, trace
// propagation and structured logging.
type Producer struct {
	writer Writer
	retry  resilience.RetryConfig
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// NewProducer creates a producer for cfg.Brokers. Topics are chosen per message.
func NewProducer(cfg kafka.Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}

	plog := log.WithComponent("kafka.producer")
	transport, err := kafka.CreateTransport(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer transport: %w", err)
	}

	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Transport:              transport,
		Balancer:               &kafkago.Hash{},
		BatchSize:              cfg.Producer.BatchSize,
		BatchTimeout:           cfg.Producer.BatchTimeout,
		RequiredAcks:           kafkago.RequiredAcks(cfg.Producer.RequiredAcks),
		Compression:            cfg.Producer.Codec(),
		WriteTimeout:           cfg.Producer.WriteTimeout,
		AllowAutoTopicCreation: false,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			plog.Error("writer: "+fmt.Sprintf(msg, args...))
		}),
	}

	plog.Info("Kafka producer initialized", map[string]interface{}{
		"brokers":     cfg.Brokers,
		"compression": cfg.Producer.Compression,
		"batch_size":  cfg.Producer.BatchSize,
	})
	return NewWithWriter(writer, cfg.Producer.Attempts, plog), nil
}

// NewWithWriter creates a producer on an existing writer, retrying each
// publish up to attempts times.
func NewWithWriter(w Writer, attempts int, log *logger.Logger) *Producer {
	retry := resilience.DefaultRetryConfig()
	if attempts > 0 {
		retry.MaxAttempts = attempts
	}
	retry.RetryIf = kafka.IsRetryableError
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Warn("Kafka write failed, retrying", map[string]interface{}{
			"attempt": attempt,
			"backoff": backoff.String(),
			"error":   err.Error(),
		})
	}
	return &Producer{writer: w, retry: retry, log: log}
}

// Publish writes msg, injecting the trace context of ctx into its headers.
func (p *Producer) Publish(ctx context.Context, msg kafka.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	if msg.Headers == nil {
		msg.Headers = make(map[string]string)
	}
	otel.GetTextMapPropagator().Inject(ctx, kafka.HeaderCarrier(msg.Headers))
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	km := msg.ToKafkaMessage()
	err := resilience.RetryFunc(ctx, p.retry, func() error {
		return p.writer.WriteMessages(ctx, km)
	})
	if err != nil {
		return kafka.FromKafka(fmt.Errorf("write to %s: %w", msg.Topic, err), msg.Topic)
	}
	return nil
}

// PublishJSON marshals v and publishes it to topic under key. Extra headers
// are added to the message.
func (p *Producer) PublishJSON(ctx context.Context, topic, key string, v interface{}, headers map[string]string) error {
	msg, err := kafka.NewJSONMessage(topic, key, v)
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	for k, val := range headers {
		msg.Headers[k] = val
	}
	return p.Publish(ctx, msg)
}

// Stats returns writer statistics.
func (p *Producer) Stats() kafkago.WriterStats {
	return p.writer.Stats()
}

// Close flushes pending messages and shuts down the producer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.log.Info("Kafka producer closing")
	return p.writer.Close()
}
