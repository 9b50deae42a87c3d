package gateway

import (
	"fmt"

	"github.com/kbukum/scribegate/api"
	"github.com/kbukum/scribegate/auth"
	"github.com/kbukum/scribegate/auth/apikey"
	"github.com/kbukum/scribegate/auth/oidc"
	"github.com/kbukum/scribegate/config"
	"github.com/kbukum/scribegate/database"
	"github.com/kbukum/scribegate/dispatch"
	"github.com/kbukum/scribegate/kafka"
	"github.com/kbukum/scribegate/observability"
	"github.com/kbukum/scribegate/ratelimit"
	"github.com/kbukum/scribegate/redis"
	"github.com/kbukum/scribegate/server"
	"github.com/kbukum/scribegate/storage"
	"github.com/kbukum/scribegate/transcription/whisper"
)

// ServiceName names the process, its config file and its env prefix.
const ServiceName = "scribegate"

// Config is the complete gateway configuration.
type Config struct {
	config.ServiceConfig `mapstructure:",squash"`

	Server        server.Config        `mapstructure:"server"`
	Database      database.Config      `mapstructure:"database"`
	Redis         redis.Config         `mapstructure:"redis"`
	Kafka         kafka.Config         `mapstructure:"kafka"`
	Storage       storage.Config       `mapstructure:"storage"`
	Auth          AuthConfig           `mapstructure:"auth"`
	RateLimit     ratelimit.Config     `mapstructure:"ratelimit"`
	Observability observability.Config `mapstructure:"observability"`
	Dispatch      dispatch.Config      `mapstructure:"dispatch"`
	Whisper       whisper.Config       `mapstructure:"whisper"`
	Formatter     api.Config           `mapstructure:"formatter"`
}

// AuthConfig groups the credential schemes.
type AuthConfig struct {
	OIDC    oidc.Config   `mapstructure:"oidc"`
	APIKeys apikey.Config `mapstructure:"api_keys"`
	// RolePermissions maps identity provider roles to permission patterns.
	// Empty grants every OIDC caller the default permissions.
	RolePermissions auth.RolePermissions `mapstructure:"role_permissions"`
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Auth.OIDC.ApplyDefaults()
	c.Auth.APIKeys.ApplyDefaults()
	c.RateLimit.ApplyDefaults()
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
	c.Dispatch.ApplyDefaults()
	c.Whisper.ApplyDefaults()
	c.Formatter.ApplyDefaults()
}

// Validate checks every section that the configured mode uses.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}

	type section struct {
		name     string
		validate func() error
	}
	sections := []section{
		{"server", c.Server.Validate},
		{"database", c.Database.Validate},
		{"storage", c.Storage.Validate},
		{"auth.oidc", c.Auth.OIDC.Validate},
		{"auth.api_keys", c.Auth.APIKeys.Validate},
		{"observability", c.Observability.Validate},
		{"dispatch", c.Dispatch.Validate},
		{"formatter", c.Formatter.Validate},
	}
	if c.Redis.Enabled {
		sections = append(sections, section{"redis", c.Redis.Validate})
	}
	if c.RateLimit.Enabled {
		sections = append(sections, section{"ratelimit", c.RateLimit.Validate})
	}
	switch c.Dispatch.Mode {
	case dispatch.ModeQueue:
		sections = append(sections, section{"kafka", c.Kafka.Validate})
	case dispatch.ModeInline:
		sections = append(sections, section{"whisper", c.Whisper.Validate})
	}
	for _, s := range sections {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	if !c.Storage.Enabled {
		return fmt.Errorf("storage.enabled must be true")
	}
	if !c.Auth.OIDC.Enabled && !c.Auth.APIKeys.Enabled {
		return fmt.Errorf("auth: enable at least one of auth.oidc and auth.api_keys")
	}
	if c.Dispatch.Mode == dispatch.ModeQueue && !c.Kafka.Enabled {
		return fmt.Errorf("kafka.enabled must be true in %q dispatch mode", dispatch.ModeQueue)
	}
	return nil
}
