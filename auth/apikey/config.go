package apikey

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Config configures API key authentication.
type Config struct {
	// Enabled controls whether "Token" credentials are accepted.
	Enabled bool `mapstructure:"enabled"`

	// BcryptCost is the bcrypt work factor for stored secrets (default: 10).
	BcryptCost int `mapstructure:"bcrypt_cost"`

	// SecretBytes is the number of random bytes in a generated secret (default: 32).
	SecretBytes int `mapstructure:"secret_bytes"`

	// DefaultScopes are granted to keys created without explicit scopes.
	DefaultScopes []string `mapstructure:"default_scopes"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	if c.SecretBytes == 0 {
		c.SecretBytes = 32
	}
	if len(c.DefaultScopes) == 0 {
		c.DefaultScopes = []string{"jobs:*"}
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("apikey: bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.SecretBytes < 16 || c.SecretBytes > maxSecretLen/2 {
		return fmt.Errorf("apikey: secret_bytes must be between 16 and %d", maxSecretLen/2)
	}
	return nil
}
