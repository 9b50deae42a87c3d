package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/kbukum/scribegate/auth/apikey"
	"github.com/kbukum/scribegate/bootstrap"
	"github.com/kbukum/scribegate/config"
	"github.com/kbukum/scribegate/database"
	"github.com/kbukum/scribegate/dispatch"
	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/resilience"
	"github.com/kbukum/scribegate/server"
	"github.com/kbukum/scribegate/storage"
	"github.com/kbukum/scribegate/users"
)

func inlineConfig(t *testing.T, whisperURL string) *Config {
	t.Helper()
	cfg := &Config{ServiceConfig: config.ServiceConfig{Name: "scribegate", Version: "test"}}
	cfg.Server.Host = "127.0.0.1"
	cfg.Database.DSN = ":memory:"
	cfg.Database.Migrate = true
	cfg.Storage.Enabled = true
	cfg.Storage.Provider = storage.ProviderLocal
	cfg.Storage.BasePath = t.TempDir()
	cfg.Auth.APIKeys.Enabled = true
	cfg.Auth.APIKeys.BcryptCost = 4
	cfg.Dispatch.Mode = dispatch.ModeInline
	cfg.Whisper.URL = whisperURL
	cfg.Whisper.Retry = resilience.Policy{MaxAttempts: 1, InitialBackoff: "1ms", MaxBackoff: "1ms"}
	return cfg
}

func TestConfig_Defaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, ServiceName, cfg.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, dispatch.ModeQueue, cfg.Dispatch.Mode)
	assert.Equal(t, "transcription.tasks", cfg.Dispatch.TasksTopic)
	assert.Equal(t, "transcription.results", cfg.Dispatch.ResultsTopic)
	assert.Equal(t, "large-v2", cfg.Formatter.DefaultModel)
	assert.Equal(t, 60, cfg.RateLimit.Limit)
	assert.Equal(t, cfg.Environment, cfg.Observability.Environment)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"inline ok", func(*Config) {}, ""},
		{"storage disabled", func(c *Config) { c.Storage.Enabled = false }, "storage.enabled"},
		{"no auth scheme", func(c *Config) { c.Auth.APIKeys.Enabled = false }, "auth"},
		{"queue without kafka", func(c *Config) { c.Dispatch.Mode = dispatch.ModeQueue }, "kafka.enabled"},
		{"queue with kafka", func(c *Config) {
			c.Dispatch.Mode = dispatch.ModeQueue
			c.Kafka.Enabled = true
		}, ""},
		{"unknown mode", func(c *Config) { c.Dispatch.Mode = "batch" }, "dispatch"},
		{"unknown model", func(c *Config) { c.Formatter.DefaultModel = "gpt-audio" }, "formatter"},
		{"bad rate window", func(c *Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.Window = "soon"
		}, "ratelimit"},
		{"oidc without issuer", func(c *Config) { c.Auth.OIDC.Enabled = true }, "auth.oidc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := inlineConfig(t, "http://127.0.0.1:1")
			tt.mutate(cfg)
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Load(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yml"
	yml := `
name: scribegate
environment: staging
server:
  port: 9090
dispatch:
  mode: inline
formatter:
  default_model: medium
auth:
  role_permissions:
    transcriber: ["jobs:*"]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("SCRIBEGATE_RATELIMIT_LIMIT", "5")

	var cfg Config
	require.NoError(t, config.LoadConfig(ServiceName, &cfg, config.WithConfigFile(path), config.WithEnvFile(dir+"/.env")))
	cfg.ApplyDefaults()

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, dispatch.ModeInline, cfg.Dispatch.Mode)
	assert.Equal(t, "medium", cfg.Formatter.DefaultModel)
	assert.Equal(t, []string{"jobs:*"}, cfg.Auth.RolePermissions["transcriber"])
	assert.Equal(t, 5, cfg.RateLimit.Limit)
}

// fakeWhisper serves the sidecar endpoints the inline dispatcher calls.
func fakeWhisper(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/transcribe":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"language": "en",
				"segments": []map[string]any{
					{"text": "hello there", "start": 0, "end": 1.2, "speaker": "SPEAKER_00"},
					{"text": "general kenobi", "start": 1.3, "end": 2.5, "speaker": "SPEAKER_01"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGateway_InlineEndToEnd(t *testing.T) {
	whisper := fakeWhisper(t)
	cfg := inlineConfig(t, whisper.URL)

	app, err := New(cfg, bootstrap.WithLogger(logger.Nop()), bootstrap.WithSummaryWriter(io.Discard))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = app.RunTask(ctx, func(ctx context.Context) error {
		db := app.Components.Get("database").(*database.Component).DB()
		user, err := users.NewRepository(db, logger.Nop()).Provision(ctx, users.Profile{Subject: "cli:tester"})
		require.NoError(t, err)
		created, err := apikey.NewStore(db, cfg.Auth.APIKeys, logger.Nop()).Create(ctx, user.ID, "e2e", nil)
		require.NoError(t, err)

		base := "http://" + app.Components.Get("http-server").(*server.Component).Server().Addr()
		call := func(method, path string, body io.Reader) (int, string) {
			req, err := http.NewRequestWithContext(ctx, method, base+path, body)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Token "+created.Token)
			req.Header.Set("Content-Type", "audio/wav")
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			data, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			return resp.StatusCode, string(data)
		}

		status, body := call(http.MethodPost, "/v1/listen?summarize=false", bytes.NewReader([]byte("RIFF fake wav")))
		require.Equal(t, http.StatusAccepted, status, body)
		id := gjson.Get(body, "request_id").String()
		require.NotEmpty(t, id)

		require.Eventually(t, func() bool {
			status, _ := call(http.MethodGet, "/v1/status/"+id, nil)
			if status != http.StatusOK {
				return false
			}
			status, body = call(http.MethodGet, "/v1/results/"+id, nil)
			return status == http.StatusOK
		}, 10*time.Second, 20*time.Millisecond)

		assert.Equal(t, id, gjson.Get(body, "metadata.request_id").String())
		transcript := strings.ToLower(gjson.Get(body, "results.channels.0.alternatives.0.transcript").String())
		assert.Contains(t, transcript, "general kenobi")
		assert.Len(t, gjson.Get(body, "metadata.sha256").String(), 64)

		status, _ = call(http.MethodGet, "/v1/results/"+id, nil)
		assert.Equal(t, http.StatusOK, status)

		status, _ = call(http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, status)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/v1/jobs", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		return nil
	})
	require.NoError(t, err)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := inlineConfig(t, "http://127.0.0.1:1")
	cfg.Storage.Enabled = false
	_, err := New(cfg, bootstrap.WithLogger(logger.Nop()), bootstrap.WithSummaryWriter(io.Discard))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.enabled")
}
