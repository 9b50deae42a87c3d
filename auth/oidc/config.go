package oidc

import (
	"fmt"
	"time"
)

// Config configures bearer token verification against an OIDC issuer.
// Loadable from YAML/env via mapstructure tags.
type Config struct {
	// Enabled controls whether Bearer tokens are accepted.
	Enabled bool `mapstructure:"enabled"`

	// Issuer is the provider's issuer URL, e.g. "https://sso.example.com/realms/main".
	// The JWKS endpoint is discovered from it unless JWKSURL is set.
	Issuer string `mapstructure:"issuer"`

	// ClientID is the client this gateway is registered as. Its
	// resource_access roles are merged into the principal's roles, and a
	// token is accepted when it names the client in "aud" or "azp".
	ClientID string `mapstructure:"client_id"`

	// Audience, when set, must appear in the "aud" claim.
	Audience string `mapstructure:"audience"`

	// JWKSURL overrides discovery.
	JWKSURL string `mapstructure:"jwks_url"`

	// SupportedSigningAlgs restricts allowed signing algorithms (default: ["RS256"]).
	SupportedSigningAlgs []string `mapstructure:"supported_signing_algs"`

	// JWKSCacheTTL controls how long keys are cached (default: "5m").
	JWKSCacheTTL string `mapstructure:"jwks_cache_ttl"`

	// HTTPTimeout bounds discovery and JWKS requests (default: "10s").
	HTTPTimeout string `mapstructure:"http_timeout"`

	// Leeway tolerates clock skew on exp/nbf/iat (default: "30s").
	Leeway string `mapstructure:"leeway"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.SupportedSigningAlgs) == 0 {
		c.SupportedSigningAlgs = []string{"RS256"}
	}
	if c.JWKSCacheTTL == "" {
		c.JWKSCacheTTL = "5m"
	}
	if c.HTTPTimeout == "" {
		c.HTTPTimeout = "10s"
	}
	if c.Leeway == "" {
		c.Leeway = "30s"
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Issuer == "" {
		return fmt.Errorf("oidc: issuer is required")
	}
	if c.ClientID == "" && c.Audience == "" {
		return fmt.Errorf("oidc: client_id or audience is required")
	}
	for name, v := range map[string]string{
		"jwks_cache_ttl": c.JWKSCacheTTL,
		"http_timeout":   c.HTTPTimeout,
		"leeway":         c.Leeway,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("oidc: invalid %s %q: %w", name, v, err)
		}
	}
	return nil
}

// GetJWKSCacheTTL returns the parsed key cache TTL.
func (c *Config) GetJWKSCacheTTL() time.Duration { return parseOr(c.JWKSCacheTTL, 5*time.Minute) }

// GetHTTPTimeout returns the parsed HTTP timeout.
func (c *Config) GetHTTPTimeout() time.Duration { return parseOr(c.HTTPTimeout, 10*time.Second) }

// GetLeeway returns the parsed clock skew allowance.
func (c *Config) GetLeeway() time.Duration { return parseOr(c.Leeway, 30*time.Second) }

func parseOr(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}
