package security

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// ClientTLS is the TLS setup for outbound connections to Kafka brokers,
// Redis and the whisper sidecar. Paths point at PEM files.
type ClientTLS struct {
	// CAFile replaces the system roots with the certificates it holds.
	CAFile string `mapstructure:"ca_file"`
	// CertFile and KeyFile enable mutual TLS. Both or neither must be set.
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
	// ServerName overrides the name checked against the server certificate.
	ServerName string `mapstructure:"server_name"`
	// SkipVerify accepts any server certificate. Local development only.
	SkipVerify bool `mapstructure:"skip_verify"`
}

// Configured reports whether any setting is present. A nil c is unset.
func (c *ClientTLS) Configured() bool {
	return c != nil && (c.CAFile != "" || c.CertFile != "" || c.KeyFile != "" || c.ServerName != "" || c.SkipVerify)
}

// Validate checks the settings without touching the filesystem.
func (c *ClientTLS) Validate() error {
	if c == nil {
		return nil
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("tls: cert_file and key_file must be set together")
	}
	return nil
}

// Build returns a client tls.Config with a TLS 1.2 floor. A nil or empty c
// yields the system roots and no client certificate.
func (c *ClientTLS) Build() (*tls.Config, error) {
	out := &tls.Config{MinVersion: tls.VersionTLS12}
	if c == nil {
		return out, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	out.ServerName = c.ServerName
	out.InsecureSkipVerify = c.SkipVerify //nolint:gosec // opt-in for development brokers

	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("tls: read CA file: %w", err)
		}
		roots := x509.NewCertPool()
		if !roots.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("tls: no certificates in CA file %s", c.CAFile)
		}
		out.RootCAs = roots
	}
	if c.CertFile != "" {
		pair, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("tls: load client certificate: %w", err)
		}
		out.Certificates = []tls.Certificate{pair}
	}
	return out, nil
}
