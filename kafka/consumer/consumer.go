// Package consumer reads messages from a Kafka topic in a consumer group.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"github.com/kbukum/scribegate/kafka"
	"github.com/kbukum/scribegate/logger"
)

const maxBackoff = 30 * time.Second

// Reader is the subset of *kafkago.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.ReaderStats
	Close() error
}

// Consumer wraps a kafka-go Reader with TLS/SASL, backoff and explicit
// commits after each handled message.
type Consumer struct {
	reader   Reader
	topic    string
	groupID  string
	log      *logger.Logger
	failures int
}

// NewConsumer creates a consumer for a single topic.
func NewConsumer(cfg kafka.Config, topic string, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka consumer topic is required")
	}

	dialer, err := kafka.CreateDialer(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer dialer: %w", err)
	}

	clog := log.WithComponent("kafka.consumer")
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       cfg.Consumer.Offset(),
		CommitInterval:    cfg.Consumer.CommitInterval,
		MinBytes:          1,
		MaxBytes:          10e6,
		SessionTimeout:    cfg.Consumer.SessionTimeout,
		HeartbeatInterval: cfg.Consumer.HeartbeatInterval,
		RebalanceTimeout:  cfg.Consumer.RebalanceTimeout,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: "+fmt.Sprintf(msg, args...), map[string]interface{}{
				"topic":   topic,
				"groupID": cfg.GroupID,
			})
		}),
	})

	clog.Info("Kafka consumer initialized", map[string]interface{}{
		"topic":   topic,
		"groupID": cfg.GroupID,
		"brokers": cfg.Brokers,
	})
	return NewWithReader(reader, topic, cfg.GroupID, clog), nil
}

// NewWithReader creates a consumer on an existing reader.
func NewWithReader(r Reader, topic, groupID string, log *logger.Logger) *Consumer {
	return &Consumer{reader: r, topic: topic, groupID: groupID, log: log}
}

// Consume fetches messages in a loop, calls handler for each one and commits
// it afterwards. Handler errors are logged and the message is still committed.
// It blocks until ctx is cancelled or the reader is closed, returning nil
// in the latter case.
func (c *Consumer) Consume(ctx context.Context, handler kafka.Handler) error {
	c.log.Info("Starting consume loop", map[string]interface{}{
		"topic":   c.topic,
		"groupID": c.groupID,
	})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if waitErr := c.backoff(ctx, err); waitErr != nil {
				return waitErr
			}
			continue
		}
		c.failures = 0

		msg := kafka.FromKafkaMessage(km)
		msgCtx := otel.GetTextMapPropagator().Extract(ctx, kafka.HeaderCarrier(msg.Headers))
		if id := msg.Headers[kafka.HeaderRequestID]; id != "" {
			msgCtx = logger.ContextWithRequestID(msgCtx, id)
		}

		if err := handler(msgCtx, msg); err != nil {
			c.log.Error("Message processing failed", map[string]interface{}{
				"error":  err.Error(),
				"topic":  msg.Topic,
				"key":    msg.Key,
				"offset": msg.Offset,
			})
		}

		if err := c.reader.CommitMessages(ctx, km); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("Offset commit failed", map[string]interface{}{
				"error":  err.Error(),
				"topic":  msg.Topic,
				"offset": msg.Offset,
			})
		}
	}
}

func (c *Consumer) backoff(ctx context.Context, err error) error {
	c.failures++
	if c.failures <= 3 {
		c.log.Error("Kafka fetch error", map[string]interface{}{
			"error":    err.Error(),
			"failures": c.failures,
			"topic":    c.topic,
			"groupID":  c.groupID,
		})
	}

	wait := time.Duration(c.failures) * time.Second
	if wait > maxBackoff {
		wait = maxBackoff
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Topic returns the consumer's topic.
func (c *Consumer) Topic() string { return c.topic }

// GroupID returns the consumer's group ID.
func (c *Consumer) GroupID() string { return c.groupID }

// Stats returns reader statistics.
func (c *Consumer) Stats() kafkago.ReaderStats { return c.reader.Stats() }

// Close shuts down the consumer.
func (c *Consumer) Close() error {
	c.log.Info("Kafka consumer closing", map[string]interface{}{
		"topic":   c.topic,
		"groupID": c.groupID,
	})
	return c.reader.Close()
}
