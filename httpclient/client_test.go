package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/resilience"
)

func fastRetry(attempts int) resilience.Policy {
	return resilience.Policy{MaxAttempts: attempts, InitialBackoff: "1ms", MaxBackoff: "2ms"}
}

func TestClient_Do_GET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/health" {
			t.Errorf("expected /health, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("verbose") != "1" {
			t.Errorf("expected verbose=1, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("X-Default") != "yes" {
			t.Errorf("default header missing")
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL + "/", Headers: map[string]string{"X-Default": "yes"}}, logger.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/health",
		Query:  url.Values{"verbose": {"1"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.OK() || string(resp.Body) != "ok" {
		t.Errorf("unexpected response %d %q", resp.StatusCode, resp.Body)
	}
}

func TestClient_DoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}
		if got := r.Header.Get("X-Request-ID"); got != "req-42" {
			t.Errorf("expected request id header, got %q", got)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"echo": body["name"]})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, logger.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := logger.ContextWithRequestID(context.Background(), "req-42")
	var out map[string]string
	err = c.DoJSON(ctx, Request{Method: http.MethodPost, Path: "/echo", Body: map[string]string{"name": "Bob"}}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["echo"] != "Bob" {
		t.Errorf("echo = %q, want Bob", out["echo"])
	}
}

func TestClient_DoJSON_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL}, logger.Nop())
	var out map[string]string
	err := c.DoJSON(context.Background(), Request{Method: http.MethodGet, Path: "/"}, &out)

	if KindOf(err) != KindDecode || IsRetryable(err) {
		t.Fatalf("expected a final decode error, got %v", err)
	}
}

func TestClient_Auth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get("Authorization")))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Auth: BearerAuth("client")}, logger.Nop())

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if err != nil || string(resp.Body) != "Bearer client" {
		t.Fatalf("client auth: %v %q", err, resp.Body)
	}

	resp, err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/", Auth: BearerAuth("request")})
	if err != nil || string(resp.Body) != "Bearer request" {
		t.Fatalf("request auth: %v %q", err, resp.Body)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("done"))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Retry: fastRetry(3)}, logger.Nop())
	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Body) != "done" || calls.Load() != 3 {
		t.Errorf("body=%q calls=%d", resp.Body, calls.Load())
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"bad audio"}`))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Retry: fastRetry(3)}, logger.Nop())
	_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/", Body: []byte("x")})

	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if e.Kind != KindRejected || e.StatusCode != 400 || !strings.Contains(string(e.Body), "bad audio") {
		t.Errorf("unexpected error %+v", e)
	}
	if !strings.HasSuffix(err.Error(), ": bad audio") {
		t.Errorf("message should carry the upstream detail: %q", err.Error())
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := New(Config{BaseURL: url, Retry: fastRetry(1)}, logger.Nop())
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if KindOf(err) != KindConnection {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c, _ := New(Config{BaseURL: srv.URL, Timeout: "50ms", Retry: fastRetry(1)}, logger.Nop())
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if KindOf(err) != KindTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"bad timeout", Config{Timeout: "soon"}, true},
		{"negative timeout", Config{Timeout: "-1s"}, true},
		{"bad retry", Config{Retry: resilience.Policy{MaxAttempts: 2, Jitter: 2}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequest_Target(t *testing.T) {
	tests := []struct {
		name string
		base string
		req  Request
		want string
	}{
		{"joined", "http://whisper:8387/", Request{Path: "/transcribe"}, "http://whisper:8387/transcribe"},
		{"base path kept", "http://gpu-1/asr", Request{Path: "health"}, "http://gpu-1/asr/health"},
		{"absolute wins", "http://whisper:8387", Request{Path: "https://other/health"}, "https://other/health"},
		{"query merged", "http://whisper:8387", Request{Path: "/health?deep=1", Query: url.Values{"verbose": {"1"}}},
			"http://whisper:8387/health?deep=1&verbose=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.target(tt.base)
			if err != nil || got != tt.want {
				t.Errorf("target() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}
