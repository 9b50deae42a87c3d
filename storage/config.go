package storage

import (
	"cmp"
	"errors"
	"fmt"
)

const (
	ProviderLocal = "local"
	ProviderS3    = "s3"

	DefaultBasePath = "./data/audio"
	DefaultRegion   = "us-east-1"
)

// Config is the storage section. Archived audio goes to a directory or an
// S3 bucket; S3-compatible servers such as MinIO work through Endpoint.
type Config struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Provider string `mapstructure:"provider" json:"provider"`
	BasePath string `mapstructure:"base_path" json:"base_path"`

	Bucket   string `mapstructure:"bucket" json:"bucket"`
	Region   string `mapstructure:"region" json:"region"`
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Static credentials. Without them the AWS default chain applies.
	AccessKey string `mapstructure:"access_key" json:"-"`
	SecretKey string `mapstructure:"secret_key" json:"-"`
	// ForcePathStyle is implied by a custom Endpoint.
	ForcePathStyle bool `mapstructure:"force_path_style" json:"force_path_style"`
}

func (c *Config) ApplyDefaults() {
	c.Provider = cmp.Or(c.Provider, ProviderLocal)
	c.BasePath = cmp.Or(c.BasePath, DefaultBasePath)
	c.Region = cmp.Or(c.Region, DefaultRegion)
}

// Validate checks an enabled section against its provider and reports
// every problem at once.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	need := func(value, key string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required for provider %s", key, c.Provider))
		}
	}
	switch c.Provider {
	case ProviderLocal:
		need(c.BasePath, "base_path")
	case ProviderS3:
		need(c.Bucket, "bucket")
		need(c.Region, "region")
		if (c.AccessKey == "") != (c.SecretKey == "") {
			errs = append(errs, errors.New("access_key and secret_key must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported provider %q", c.Provider))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

// location names where objects go, for logs and the startup summary.
func (c *Config) location() string {
	switch c.Provider {
	case ProviderS3:
		loc := "s3://" + c.Bucket
		if c.Endpoint != "" {
			loc += " via " + c.Endpoint
		}
		return loc
	case ProviderLocal:
		return c.BasePath
	}
	return c.Provider
}
