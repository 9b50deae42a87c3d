package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/resilience"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 64 << 20

// Client is an HTTP client with TLS, auth and retry of transient failures.
type Client struct {
	httpClient *http.Client
	config     Config
	retry      resilience.RetryConfig
	log        *logger.Logger
}

// New creates a client from cfg.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLS.Configured() {
		tlsCfg, err := cfg.TLS.Build()
		if err != nil {
			return nil, fmt.Errorf("httpclient: %w", err)
		}
		transport.TLSClientConfig = tlsCfg
	}

	clog := log.WithComponent("httpclient")
	retry := cfg.Retry.RetryConfig()
	retry.RetryIf = IsRetryable
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		clog.Warn("HTTP request failed, retrying", map[string]interface{}{
			"base_url": cfg.BaseURL,
			"attempt":  attempt,
			"backoff":  backoff.String(),
			"error":    err.Error(),
		})
	}

	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: cfg.GetTimeout()},
		config:     cfg,
		retry:      retry,
		log:        clog,
	}, nil
}

// Do executes req, retrying transient failures. A non-2xx status is
// returned as an *Error carrying the response body.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	return resilience.Retry(ctx, c.retry, func() (*Response, error) {
		return c.execute(ctx, req)
	})
}

// DoJSON executes req and decodes a successful response body into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &Error{Kind: KindDecode, StatusCode: resp.StatusCode, Body: resp.Body, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) execute(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx.Err(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Kind: KindConnection, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response body: %w", err)}
	}

	result := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if failed := statusError(resp.StatusCode, body); failed != nil {
		return result, failed
	}
	return result, nil
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	target, err := req.target(c.config.BaseURL)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Err: fmt.Errorf("resolve %s: %w", req.Path, err)}
	}
	body, contentType, err := req.encode()
	if err != nil {
		return nil, &Error{Kind: KindRequest, Err: fmt.Errorf("encode body: %w", err)}
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Err: fmt.Errorf("create request: %w", err)}
	}

	h := httpReq.Header
	for _, set := range []map[string]string{c.config.Headers, req.Headers} {
		for k, v := range set {
			h.Set(k, v)
		}
	}
	if contentType != "" && h.Get("Content-Type") == "" {
		h.Set("Content-Type", contentType)
	}
	if id := logger.RequestIDFromContext(ctx); id != "" && h.Get("X-Request-ID") == "" {
		h.Set("X-Request-ID", id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))

	auth := c.config.Auth
	if req.Auth != nil {
		auth = req.Auth
	}
	auth.apply(httpReq)
	return httpReq, nil
}
