package api

import (
	"fmt"

	"github.com/kbukum/scribegate/transcription/formatter"
)

// Config configures request handling.
type Config struct {
	// DefaultModel is used when a listen request names no model.
	DefaultModel string `mapstructure:"default_model"`
	// MaxAudioBytes bounds an uploaded audio payload (default: 100MB).
	MaxAudioBytes int64 `mapstructure:"max_audio_bytes"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.DefaultModel == "" {
		c.DefaultModel = formatter.DefaultModel
	}
	if c.MaxAudioBytes == 0 {
		c.MaxAudioBytes = 100 << 20
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxAudioBytes < 0 {
		return fmt.Errorf("formatter.max_audio_bytes must be positive (got: %d)", c.MaxAudioBytes)
	}
	if _, ok := formatter.LookupModel(c.DefaultModel); !ok {
		return fmt.Errorf("formatter.default_model %q is not a known model (known: %v)", c.DefaultModel, formatter.KnownModels())
	}
	return nil
}
