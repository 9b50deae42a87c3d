package storage_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribegate/component"
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/storage"
	_ "github.com/kbukum/scribegate/storage/local"
)

func TestAudioKey(t *testing.T) {
	assert.Equal(t, "audio/u1/req-1", storage.AudioKey("u1", "req-1"))
	assert.Equal(t, "audio/a_b/_", storage.AudioKey("a/b", ".."))
	assert.Equal(t, "audio/_/_", storage.AudioKey("", ""))
}

func TestFromStorage(t *testing.T) {
	assert.Nil(t, storage.FromStorage(nil, "k"))

	notFound := storage.FromStorage(fmt.Errorf("%w: k", storage.ErrNotFound), "k")
	assert.Equal(t, apperrors.ErrCodeNotFound, notFound.Code)

	down := storage.FromStorage(errors.New("dial tcp: connection refused"), "k")
	assert.Equal(t, apperrors.ErrCodeServiceUnavailable, down.Code)
	assert.True(t, down.Retryable)

	existing := apperrors.Forbidden("nope")
	assert.Same(t, existing, storage.FromStorage(existing, "k"))
}

func TestConfigValidate(t *testing.T) {
	s3 := func(mod func(*storage.Config)) storage.Config {
		c := storage.Config{Enabled: true, Provider: storage.ProviderS3, Bucket: "audio", Region: "eu-west-1"}
		mod(&c)
		return c
	}
	tests := []struct {
		name string
		cfg  storage.Config
		want string
	}{
		{"disabled", storage.Config{Provider: "ftp"}, ""},
		{"local", storage.Config{Enabled: true, Provider: storage.ProviderLocal, BasePath: "/tmp/x"}, ""},
		{"s3", s3(func(*storage.Config) {}), ""},
		{"s3 no bucket or region", s3(func(c *storage.Config) { c.Bucket, c.Region = "", "" }),
			"storage: bucket is required for provider s3\nregion is required for provider s3"},
		{"s3 half credentials", s3(func(c *storage.Config) { c.AccessKey = "a" }),
			"storage: access_key and secret_key must be set together"},
		{"unknown", storage.Config{Enabled: true, Provider: "ftp"}, `storage: unsupported provider "ftp"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestComponentDescribe(t *testing.T) {
	c := storage.NewComponent(storage.Config{
		Enabled: true, Provider: storage.ProviderS3, Bucket: "audio", Endpoint: "http://minio:9000",
	}, logger.Nop())
	assert.Equal(t, "provider=s3 s3://audio via http://minio:9000", c.Describe().Details)

	off := storage.NewComponent(storage.Config{}, logger.Nop())
	assert.Equal(t, "provider=local ./data/audio (disabled)", off.Describe().Details)
}

func TestNew_UnregisteredProvider(t *testing.T) {
	_, err := storage.New(context.Background(), storage.Config{Enabled: true, Provider: "ftp"}, logger.Nop())
	assert.Error(t, err)
	assert.Contains(t, storage.Providers(), storage.ProviderLocal)
}

func TestComponentLifecycle(t *testing.T) {
	ctx := context.Background()
	c := storage.NewComponent(storage.Config{
		Enabled:  true,
		Provider: storage.ProviderLocal,
		BasePath: t.TempDir(),
	}, logger.Nop())

	assert.Equal(t, component.StatusUnhealthy, c.Health(ctx).Status)
	require.NoError(t, c.Start(ctx))
	assert.Equal(t, component.StatusHealthy, c.Health(ctx).Status)
	assert.Contains(t, c.Describe().Details, "provider=local")

	s := c.Storage()
	require.NotNil(t, s)
	audio := []byte("RIFF....WAVEfmt ")
	key := storage.AudioKey("u1", "r1")
	require.NoError(t, s.Put(ctx, key, bytes.NewReader(audio), int64(len(audio)), "audio/wav"))

	obj, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer obj.Body.Close()
	got, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, audio, got)
	assert.Equal(t, "audio/wav", obj.ContentType)

	require.NoError(t, c.Stop(ctx))
	assert.Nil(t, c.Storage())
}

func TestComponentDisabled(t *testing.T) {
	c := storage.NewComponent(storage.Config{}, logger.Nop())
	require.NoError(t, c.Start(context.Background()))
	assert.Nil(t, c.Storage())
	h := c.Health(context.Background())
	assert.Equal(t, component.StatusHealthy, h.Status)
	assert.Equal(t, "disabled", h.Message)
}
