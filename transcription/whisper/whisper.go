// Package whisper transcribes audio in-process through a faster-whisper
// HTTP sidecar.
package whisper

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kbukum/scribegate/httpclient"
	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/resilience"
	"github.com/kbukum/scribegate/security"
	"github.com/kbukum/scribegate/transcription"
)

const (
	// ProviderName is the registered name for the Whisper provider.
	ProviderName = "whisper"

	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperModel   = "large-v2"
	defaultWhisperTimeout = 10 * time.Minute
)

// Config holds configuration for the Whisper transcription provider.
type Config struct {
	URL         string `mapstructure:"url"`
	Model       string `mapstructure:"model"`
	Device      string `mapstructure:"device"`
	ComputeType string `mapstructure:"compute_type"`
	Timeout     string `mapstructure:"timeout"`
	// APIKey is sent as a bearer token when set.
	APIKey string            `mapstructure:"api_key" json:"-"`
	Retry  resilience.Policy `mapstructure:"retry"`
	// TLS is for sidecars served over HTTPS with a private CA or mutual TLS.
	TLS *security.ClientTLS `mapstructure:"tls"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = defaultWhisperURL
	}
	if c.Model == "" {
		c.Model = defaultWhisperModel
	}
	if c.Timeout == "" {
		c.Timeout = defaultWhisperTimeout.String()
	}
	c.Retry.ApplyDefaults()
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("whisper: invalid timeout %q: %w", c.Timeout, err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("whisper: %w", err)
	}
	return nil
}

// Provider implements transcription.Provider using a faster-whisper HTTP sidecar.
type Provider struct {
	cfg    Config
	client *httpclient.Client
	log    *logger.Logger
}

var _ transcription.Provider = (*Provider)(nil)

// NewProvider creates a new Whisper transcription provider.
func NewProvider(cfg Config, log *logger.Logger) (*Provider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hc := httpclient.Config{
		BaseURL: cfg.URL,
		Timeout: cfg.Timeout,
		Retry:   cfg.Retry,
		TLS:     cfg.TLS,
	}
	if cfg.APIKey != "" {
		hc.Auth = httpclient.BearerAuth(cfg.APIKey)
	}
	client, err := httpclient.New(hc, log)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	return &Provider{cfg: cfg, client: client, log: log.WithComponent("whisper")}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks if the Whisper sidecar is reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	resp, err := p.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	return err == nil && resp.StatusCode == http.StatusOK
}

// Transcribe sends audio to the Whisper sidecar and returns the raw result.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Result, error) {
	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}

	fields := map[string]string{
		"model":           model,
		"word_timestamps": "true",
		"diarize":         strconv.FormatBool(req.Diarize),
	}
	if req.Language != "" {
		fields["language"] = req.Language
	}
	if p.cfg.Device != "" {
		fields["device"] = p.cfg.Device
	}
	if p.cfg.ComputeType != "" {
		fields["compute_type"] = p.cfg.ComputeType
	}

	start := time.Now()
	var result whisperResponse
	err := p.client.DoJSON(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files: []httpclient.FileField{{
				FieldName:   "audio",
				FileName:    "audio",
				ContentType: req.ContentType,
				Data:        req.Audio,
			}},
		},
	}, &result)
	if err != nil {
		return nil, httpclient.ToAppError(err, ProviderName)
	}

	out := toResult(&result)
	out.Audio = req.Audio
	p.log.WithContext(ctx).Debug("Whisper transcription finished", map[string]interface{}{
		"model":    model,
		"segments": len(out.Segments),
		"language": out.Language,
		"elapsed":  time.Since(start).String(),
	})
	return out, nil
}

type whisperResponse struct {
	Segments []transcription.Segment `json:"segments"`
	Language string                  `json:"language"`
	Duration *float64                `json:"duration"`
}

// toResult fills a missing duration from the last segment end.
func toResult(resp *whisperResponse) *transcription.Result {
	duration := resp.Duration
	if duration == nil && len(resp.Segments) > 0 {
		last := resp.Segments[len(resp.Segments)-1].End
		duration = &last
	}
	return &transcription.Result{
		Segments: resp.Segments,
		Language: resp.Language,
		Duration: duration,
	}
}
