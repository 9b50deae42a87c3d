package kafka

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/kbukum/scribegate/errors"
)

// Kind says why a publish or fetch failed.
type Kind string

const (
	// KindUnreachable means no broker could be reached.
	KindUnreachable Kind = "unreachable"
	// KindTransient is a broker-side condition that clears on its own.
	KindTransient Kind = "transient"
	// KindRejected means the broker refused the message for good.
	KindRejected Kind = "rejected"
)

// Retryable reports whether the same write may succeed if repeated.
func (k Kind) Retryable() bool {
	return k == KindUnreachable || k == KindTransient
}

// Broker codes that no retry can fix.
var rejectedCodes = map[kafkago.Error]bool{
	kafkago.MessageSizeTooLarge:        true,
	kafkago.InvalidTopic:               true,
	kafkago.UnknownTopicOrPartition:    true,
	kafkago.TopicAuthorizationFailed:   true,
	kafkago.GroupAuthorizationFailed:   true,
	kafkago.ClusterAuthorizationFailed: true,
	kafkago.SASLAuthenticationFailed:   true,
	kafkago.InvalidRequiredAcks:        true,
}

var unreachableCodes = map[kafkago.Error]bool{
	kafkago.BrokerNotAvailable: true,
	kafkago.LeaderNotAvailable: true,
	kafkago.NetworkException:   true,
}

// Errors that carry no broker code fall back to their text.
var (
	unreachableText = []string{"connection refused", "connection reset", "broken pipe", "no route to host",
		"network is unreachable", "dial tcp", "broker not available", "leader not available"}
	rejectedText  = []string{"message too large", "invalid topic", "unknown topic", "authorization failed"}
	transientText = []string{"i/o timeout", "request timed out", "not enough replicas", "temporary"}
)

// KindOf classifies err. It returns "" when err is nil or unrecognised.
// A batch failure takes the worst kind among its messages.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var batch kafkago.WriteErrors
	if errors.As(err, &batch) {
		var worst Kind
		for _, e := range batch {
			switch k := KindOf(e); {
			case k == KindRejected:
				return KindRejected
			case k == KindUnreachable || worst == "":
				worst = k
			}
		}
		return worst
	}

	var code kafkago.Error
	if errors.As(err, &code) {
		switch {
		case rejectedCodes[code]:
			return KindRejected
		case unreachableCodes[code]:
			return KindUnreachable
		case code.Temporary():
			return KindTransient
		}
		return KindRejected
	}

	var netErr net.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE), errors.Is(err, syscall.EHOSTUNREACH):
		return KindUnreachable
	case errors.As(err, &netErr) && netErr.Timeout(),
		errors.Is(err, io.ErrUnexpectedEOF):
		return KindTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, rejectedText):
		return KindRejected
	case containsAny(msg, unreachableText):
		return KindUnreachable
	case containsAny(msg, transientText):
		return KindTransient
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsRetryableError is the producer's retry filter.
func IsRetryableError(err error) bool { return KindOf(err).Retryable() }

// FromKafka maps a failed write to topic into the API error taxonomy.
// Unreachable brokers become SERVICE_UNAVAILABLE and any other known
// failure EXTERNAL_SERVICE_ERROR. Unrecognised errors are internal.
func FromKafka(err error, topic string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	switch KindOf(err) {
	case KindUnreachable:
		return apperrors.ServiceUnavailable("message queue").WithDetail("topic", topic).WithCause(err)
	case KindTransient:
		return apperrors.ExternalServiceError("message queue", err).WithDetail("topic", topic)
	case KindRejected:
		return (&apperrors.AppError{
			Code:       apperrors.ErrCodeExternalService,
			Message:    "The message queue rejected the message.",
			HTTPStatus: http.StatusBadGateway,
			Details:    map[string]any{"topic": topic},
		}).WithCause(err)
	}
	return apperrors.Internal(err)
}
