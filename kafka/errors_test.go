package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/kbukum/scribegate/errors"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "read: deadline reached" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain", errors.New("something odd"), ""},
		{"oversized transcript task", kafkago.MessageSizeTooLarge, KindRejected},
		{"missing tasks topic", fmt.Errorf("write to transcription.tasks: %w", kafkago.UnknownTopicOrPartition), KindRejected},
		{"acl denies topic", kafkago.TopicAuthorizationFailed, KindRejected},
		{"leader election", kafkago.LeaderNotAvailable, KindUnreachable},
		{"broker gone", kafkago.BrokerNotAvailable, KindUnreachable},
		{"slow replicas", kafkago.NotEnoughReplicas, KindTransient},
		{"request timed out", kafkago.RequestTimedOut, KindTransient},
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, KindUnreachable},
		{"net timeout", timeoutErr{}, KindTransient},
		{"text only refused", errors.New("dial tcp 10.0.0.1:9092: connection refused"), KindUnreachable},
		{"text only too large", errors.New("message too large"), KindRejected},
		{"context canceled", context.Canceled, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
			assert.Equal(t, tt.want.Retryable(), IsRetryableError(tt.err))
		})
	}
}

func TestKindOf_BatchTakesWorst(t *testing.T) {
	transient := kafkago.WriteErrors{nil, kafkago.RequestTimedOut}
	assert.Equal(t, KindTransient, KindOf(transient))

	unreachable := kafkago.WriteErrors{kafkago.RequestTimedOut, kafkago.LeaderNotAvailable}
	assert.Equal(t, KindUnreachable, KindOf(unreachable))

	rejected := kafkago.WriteErrors{kafkago.LeaderNotAvailable, kafkago.MessageSizeTooLarge, nil}
	assert.Equal(t, KindRejected, KindOf(rejected))
	assert.False(t, IsRetryableError(fmt.Errorf("write: %w", rejected)))
}

func TestFromKafka(t *testing.T) {
	assert.Nil(t, FromKafka(nil, "transcription.tasks"))

	tests := []struct {
		name      string
		err       error
		code      apperrors.ErrorCode
		retryable bool
	}{
		{"broker down", kafkago.BrokerNotAvailable, apperrors.ErrCodeServiceUnavailable, true},
		{"replicas lagging", kafkago.NotEnoughReplicas, apperrors.ErrCodeExternalService, true},
		{"too large", kafkago.MessageSizeTooLarge, apperrors.ErrCodeExternalService, false},
		{"unknown", errors.New("something odd"), apperrors.ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("write to transcription.tasks: %w", tt.err)
			got := FromKafka(err, "transcription.tasks")
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	rejected := FromKafka(kafkago.MessageSizeTooLarge, "transcription.tasks")
	assert.Equal(t, "transcription.tasks", rejected.Details["topic"])

	existing := apperrors.NotFound("job", "42")
	assert.Same(t, existing, FromKafka(existing, "transcription.tasks"))
}
