package dispatch

import (
	"fmt"
	"time"
)

// Dispatch modes.
const (
	ModeQueue  = "queue"
	ModeInline = "inline"
)

// Result codes stored on jobs that fail before or during transcription.
// Worker and formatting failures use the formatter's codes.
const (
	CodeDispatch         = "dispatch_error"
	CodeTranscription    = "transcription_error"
	CodeCapacityExceeded = "capacity_exceeded"
)

// Config configures job dispatch.
type Config struct {
	// Mode is "queue" (Kafka workers) or "inline" (in-process provider).
	Mode         string `mapstructure:"mode"`
	TasksTopic   string `mapstructure:"tasks_topic"`
	ResultsTopic string `mapstructure:"results_topic"`
	// ResultTimeout bounds the handling of one result message.
	ResultTimeout string `mapstructure:"result_timeout"`
	// InlineConcurrency caps concurrent in-process transcriptions.
	InlineConcurrency int `mapstructure:"inline_concurrency"`
	// InlineMaxWait is how long a job waits for an inline slot.
	InlineMaxWait string `mapstructure:"inline_max_wait"`
	// InlineTimeout bounds one in-process transcription.
	InlineTimeout string `mapstructure:"inline_timeout"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeQueue
	}
	if c.TasksTopic == "" {
		c.TasksTopic = "transcription.tasks"
	}
	if c.ResultsTopic == "" {
		c.ResultsTopic = "transcription.results"
	}
	if c.ResultTimeout == "" {
		c.ResultTimeout = "30s"
	}
	if c.InlineConcurrency <= 0 {
		c.InlineConcurrency = 4
	}
	if c.InlineMaxWait == "" {
		c.InlineMaxWait = "30s"
	}
	if c.InlineTimeout == "" {
		c.InlineTimeout = "10m"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeQueue, ModeInline:
	default:
		return fmt.Errorf("dispatch: unsupported mode %q", c.Mode)
	}
	for name, v := range map[string]string{
		"result_timeout":  c.ResultTimeout,
		"inline_max_wait": c.InlineMaxWait,
		"inline_timeout":  c.InlineTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("dispatch: invalid %s %q: %w", name, v, err)
		}
	}
	return nil
}

func parse(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
