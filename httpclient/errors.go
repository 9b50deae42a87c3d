package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	apperrors "github.com/kbukum/scribegate/errors"
)

// Kind says why a call failed.
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	// KindRequest means the request could not be built; nothing was sent.
	KindRequest Kind = "request"
	// KindRejected covers 4xx responses other than 429.
	KindRejected  Kind = "rejected"
	KindThrottled Kind = "throttled"
	KindServer    Kind = "server"
	// KindDecode is a 2xx whose body did not decode.
	KindDecode Kind = "decode"
)

// Retryable reports whether a call failing this way may succeed if repeated.
func (k Kind) Retryable() bool {
	switch k {
	case KindTimeout, KindConnection, KindThrottled, KindServer:
		return true
	}
	return false
}

// Error is a failed call. Body is set when the server answered.
type Error struct {
	Kind       Kind
	StatusCode int
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("httpclient: ")
	b.WriteString(string(e.Kind))
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	} else if msg := upstreamMessage(e.Body); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// transportError classifies a failure to get any response.
func transportError(ctxErr, err error) *Error {
	var netErr net.Error
	if ctxErr != nil || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindConnection, Err: err}
}

// statusError returns nil for 2xx statuses.
func statusError(status int, body []byte) *Error {
	var kind Kind
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		kind = KindThrottled
	case status >= 500:
		kind = KindServer
	default:
		kind = KindRejected
	}
	return &Error{Kind: kind, StatusCode: status, Body: body}
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable is the retry filter of every Client.
func IsRetryable(err error) bool { return KindOf(err).Retryable() }

const maxUpstreamMessage = 200

// upstreamMessage extracts a short reason from an error body. JSON bodies
// with a detail, error or message string are unwrapped. Sidecars built on
// FastAPI use detail.
func upstreamMessage(body []byte) string {
	var fields struct {
		Detail  any    `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &fields) == nil {
		switch d := fields.Detail.(type) {
		case string:
			msg = d
		default:
			msg = fields.Error
			if msg == "" {
				msg = fields.Message
			}
		}
	}
	if len(msg) > maxUpstreamMessage {
		cut := maxUpstreamMessage
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "…"
	}
	return msg
}

// ToAppError maps a failed call to service into the API error taxonomy.
// Unreachable services become SERVICE_UNAVAILABLE. Any answer that is an
// error becomes EXTERNAL_SERVICE_ERROR, retryable only for 429 and 5xx,
// with the status and the service's own reason as details.
func ToAppError(err error, service string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	var e *Error
	if !errors.As(err, &e) {
		return apperrors.ExternalServiceError(service, err)
	}

	switch e.Kind {
	case KindTimeout, KindConnection:
		return apperrors.ServiceUnavailable(service).WithCause(err)
	}
	appErr := apperrors.ExternalServiceError(service, err)
	appErr.Retryable = e.Kind.Retryable()
	if e.StatusCode > 0 {
		appErr.WithDetail("status", e.StatusCode)
	}
	if msg := upstreamMessage(e.Body); msg != "" {
		appErr.WithDetail("upstream", msg)
	}
	return appErr
}
