package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	apperrors "github.com/kbukum/scribegate/errors"
)

func TestStatusError(t *testing.T) {
	tests := []struct {
		status    int
		kind      Kind
		retryable bool
	}{
		{http.StatusOK, "", false},
		{http.StatusNoContent, "", false},
		{http.StatusBadRequest, KindRejected, false},
		{http.StatusUnauthorized, KindRejected, false},
		{http.StatusNotFound, KindRejected, false},
		{http.StatusRequestEntityTooLarge, KindRejected, false},
		{http.StatusUnprocessableEntity, KindRejected, false},
		{http.StatusTooManyRequests, KindThrottled, true},
		{http.StatusInternalServerError, KindServer, true},
		{http.StatusServiceUnavailable, KindServer, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := statusError(tt.status, nil)
			if tt.kind == "" {
				if err != nil {
					t.Fatalf("expected nil, got %v", err)
				}
				return
			}
			if err.Kind != tt.kind || err.Kind.Retryable() != tt.retryable {
				t.Errorf("got %s retryable=%v, want %s %v", err.Kind, err.Kind.Retryable(), tt.kind, tt.retryable)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	refused := errors.New("dial tcp 127.0.0.1:8387: connect: connection refused")
	if got := transportError(nil, refused); got.Kind != KindConnection {
		t.Errorf("refused connection classified as %s", got.Kind)
	}
	if got := transportError(context.DeadlineExceeded, refused); got.Kind != KindTimeout {
		t.Errorf("expired context classified as %s", got.Kind)
	}
	wrapped := fmt.Errorf("transcribe: %w", transportError(nil, refused))
	if KindOf(wrapped) != KindConnection || !IsRetryable(wrapped) || !errors.Is(wrapped, refused) {
		t.Error("classification must survive wrapping")
	}
	if KindOf(errors.New("plain")) != "" || IsRetryable(errors.New("plain")) {
		t.Error("plain errors have no kind and are not retried")
	}
}

func TestUpstreamMessage(t *testing.T) {
	long := strings.Repeat("é", maxUpstreamMessage)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"fastapi detail", `{"detail":"model large-v9 is not installed"}`, "model large-v9 is not installed"},
		{"error field", `{"error":"out of GPU memory"}`, "out of GPU memory"},
		{"message field", `{"message":"busy"}`, "busy"},
		{"validation list", `{"detail":[{"loc":["body","audio"]}],"message":"invalid form"}`, "invalid form"},
		{"plain text", "  upstream overloaded\n", "upstream overloaded"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := upstreamMessage([]byte(tt.body)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	got := upstreamMessage([]byte(long))
	if !strings.HasSuffix(got, "…") || len(got) > maxUpstreamMessage+len("…") {
		t.Errorf("long bodies must be cut: %d bytes", len(got))
	}
	if !strings.HasPrefix(got, "é") || strings.ContainsRune(got, '�') {
		t.Error("cut must not split a rune")
	}
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      apperrors.ErrorCode
		retryable bool
	}{
		{"sidecar down", transportError(nil, errors.New("refused")), apperrors.ErrCodeServiceUnavailable, true},
		{"sidecar slow", transportError(context.DeadlineExceeded, errors.New("deadline")), apperrors.ErrCodeServiceUnavailable, true},
		{"sidecar 500", statusError(500, nil), apperrors.ErrCodeExternalService, true},
		{"sidecar throttles", statusError(429, nil), apperrors.ErrCodeExternalService, true},
		{"unsupported model", statusError(422, []byte(`{"detail":"unknown model"}`)), apperrors.ErrCodeExternalService, false},
		{"garbled result", &Error{Kind: KindDecode, StatusCode: 200, Err: errors.New("eof")}, apperrors.ErrCodeExternalService, false},
		{"plain", errors.New("boom"), apperrors.ErrCodeExternalService, true},
		{"app error", apperrors.NotFound("job", "1"), apperrors.ErrCodeNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToAppError(tt.err, "whisper")
			if got.Code != tt.code || got.Retryable != tt.retryable {
				t.Errorf("got %s retryable=%v, want %s %v", got.Code, got.Retryable, tt.code, tt.retryable)
			}
		})
	}

	if ToAppError(nil, "whisper") != nil {
		t.Error("nil error should map to nil")
	}
	rejected := ToAppError(statusError(422, []byte(`{"detail":"unknown model"}`)), "whisper")
	if rejected.Details["status"] != 422 || rejected.Details["upstream"] != "unknown model" {
		t.Errorf("details = %v", rejected.Details)
	}
	if got := statusError(422, []byte(`{"detail":"unknown model"}`)).Error(); got != "httpclient: rejected (HTTP 422): unknown model" {
		t.Errorf("Error() = %q", got)
	}
}
