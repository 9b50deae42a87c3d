package producer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/kafka"
	"github.com/kbukum/scribegate/logger"
)

type fakeWriter struct {
	mu      sync.Mutex
	fails   []error
	written []kafkago.Message
	calls   int
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if len(w.fails) > 0 {
		err := w.fails[0]
		w.fails = w.fails[1:]
		return err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Stats() kafkago.WriterStats { return kafkago.WriterStats{} }

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func newTestProducer(w *fakeWriter, attempts int) *Producer {
	p := NewWithWriter(w, attempts, logger.Nop())
	p.retry.InitialBackoff = time.Millisecond
	p.retry.MaxBackoff = time.Millisecond
	return p
}

func headerValue(m kafkago.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublishJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w, 3)

	err := p.PublishJSON(context.Background(), "transcription.tasks", "req-1",
		map[string]string{"model": "nova-2"}, map[string]string{kafka.HeaderRequestID: "req-1"})
	require.NoError(t, err)

	require.Len(t, w.written, 1)
	got := w.written[0]
	assert.Equal(t, "transcription.tasks", got.Topic)
	assert.Equal(t, "req-1", string(got.Key))
	assert.JSONEq(t, `{"model":"nova-2"}`, string(got.Value))
	assert.Equal(t, "req-1", headerValue(got, kafka.HeaderRequestID))
	assert.Equal(t, "application/json", headerValue(got, kafka.HeaderContentType))
	assert.False(t, got.Time.IsZero())
}

func TestPublishInjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &fakeWriter{}
	p := newTestProducer(w, 1)
	require.NoError(t, p.Publish(ctx, kafka.Message{Topic: "t", Key: "k", Value: []byte("v")}))

	require.Len(t, w.written, 1)
	assert.Contains(t, headerValue(w.written[0], "traceparent"), traceID.String())
}

func TestPublishRetriesTransientErrors(t *testing.T) {
	w := &fakeWriter{fails: []error{errors.New("leader not available"), errors.New("i/o timeout")}}
	p := newTestProducer(w, 3)

	require.NoError(t, p.Publish(context.Background(), kafka.Message{Topic: "t", Value: []byte("v")}))
	assert.Equal(t, 3, w.calls)
	assert.Len(t, w.written, 1)
}

func TestPublishStopsOnNonRetryableError(t *testing.T) {
	w := &fakeWriter{fails: []error{errors.New("message too large")}}
	p := newTestProducer(w, 3)

	err := p.Publish(context.Background(), kafka.Message{Topic: "t", Value: []byte("v")})
	require.Error(t, err)
	assert.Equal(t, 1, w.calls)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeExternalService, appErr.Code)
	assert.False(t, appErr.Retryable)
}

func TestPublishGivesUpAfterAttempts(t *testing.T) {
	refused := errors.New("dial tcp: connection refused")
	w := &fakeWriter{fails: []error{refused, refused, refused}}
	p := newTestProducer(w, 2)

	err := p.Publish(context.Background(), kafka.Message{Topic: "t", Value: []byte("v")})
	require.Error(t, err)
	assert.Equal(t, 2, w.calls)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeServiceUnavailable, appErr.Code)
}

func TestPublishAfterClose(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w, 1)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	err := p.Publish(context.Background(), kafka.Message{Topic: "t"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewProducerRequiresEnabled(t *testing.T) {
	_, err := NewProducer(kafka.Config{}, logger.Nop())
	assert.Error(t, err)
}
