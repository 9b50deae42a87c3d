package kafka

import (
	"crypto/tls"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

var startOffsets = map[string]int64{
	"earliest": kafka.FirstOffset,
	"latest":   kafka.LastOffset,
}

var compressionCodecs = map[string]kafka.Compression{
	"none":   0,
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

var saslMechanisms = map[string]func(SASLConfig) (sasl.Mechanism, error){
	"PLAIN": func(s SASLConfig) (sasl.Mechanism, error) {
		return plain.Mechanism{Username: s.Username, Password: s.Password}, nil
	},
	"SCRAM-SHA-256": func(s SASLConfig) (sasl.Mechanism, error) {
		return scram.Mechanism(scram.SHA256, s.Username, s.Password)
	},
	"SCRAM-SHA-512": func(s SASLConfig) (sasl.Mechanism, error) {
		return scram.Mechanism(scram.SHA512, s.Username, s.Password)
	},
}

// Offset is where a group without a committed position starts reading.
func (c ConsumerConfig) Offset() int64 {
	if off, ok := startOffsets[c.StartOffset]; ok {
		return off
	}
	return kafka.FirstOffset
}

// Codec returns the kafka-go codec for Compression. Unknown names mean snappy.
func (p ProducerConfig) Codec() kafka.Compression {
	if codec, ok := compressionCodecs[p.Compression]; ok {
		return codec
	}
	return kafka.Snappy
}

// credentials resolves the TLS and SASL settings shared by the producer
// transport and the consumer dialer. Either result may be nil.
func (c *Config) credentials() (*tls.Config, sasl.Mechanism, error) {
	var tc *tls.Config
	if c.TLS.Configured() {
		built, err := c.TLS.Build()
		if err != nil {
			return nil, nil, err
		}
		tc = built
	}
	if !c.SASL.Enabled() {
		return tc, nil, nil
	}
	build, ok := saslMechanisms[c.SASL.Mechanism]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported SASL mechanism: %s", c.SASL.Mechanism)
	}
	mech, err := build(c.SASL)
	if err != nil {
		return nil, nil, fmt.Errorf("sasl %s: %w", c.SASL.Mechanism, err)
	}
	return tc, mech, nil
}

// CreateTransport builds the producer's transport.
func CreateTransport(cfg *Config) (*kafka.Transport, error) {
	tc, mech, err := cfg.credentials()
	if err != nil {
		return nil, fmt.Errorf("kafka transport: %w", err)
	}
	return &kafka.Transport{
		ClientID:    cfg.ClientID,
		DialTimeout: cfg.DialTimeout,
		IdleTimeout: cfg.IdleTimeout,
		MetadataTTL: cfg.MetadataTTL,
		TLS:         tc,
		SASL:        mech,
	}, nil
}

// CreateDialer builds the dialer used by the results reader and health checks.
func CreateDialer(cfg *Config) (*kafka.Dialer, error) {
	tc, mech, err := cfg.credentials()
	if err != nil {
		return nil, fmt.Errorf("kafka dialer: %w", err)
	}
	return &kafka.Dialer{
		ClientID:      cfg.ClientID,
		Timeout:       cfg.DialTimeout,
		DualStack:     true,
		TLS:           tc,
		SASLMechanism: mech,
	}, nil
}
