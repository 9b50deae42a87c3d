package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/kbukum/scribegate/security"
)

// Config is the `kafka` block. Queue dispatch publishes tasks and reads
// results through one set of brokers.
//
//	kafka:
//	  enabled: true
//	  brokers: [kafka-0:9093]
//	  tls: {ca_file: /etc/scribegate/kafka-ca.pem}
//	  sasl: {mechanism: SCRAM-SHA-512, username: gateway, password: ...}
//	  consumer: {max_lag: 500}
type Config struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	GroupID  string   `mapstructure:"group_id"`
	ClientID string   `mapstructure:"client_id"`

	// TLS is used for every broker connection once any field is set.
	TLS  *security.ClientTLS `mapstructure:"tls"`
	SASL SASLConfig          `mapstructure:"sasl"`

	Producer ProducerConfig `mapstructure:"producer"`
	Consumer ConsumerConfig `mapstructure:"consumer"`

	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	MetadataTTL time.Duration `mapstructure:"metadata_ttl"`
}

// SASLConfig authenticates to the brokers. An empty Mechanism disables SASL.
type SASLConfig struct {
	Mechanism string `mapstructure:"mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

// Enabled reports whether a mechanism is configured.
func (s SASLConfig) Enabled() bool { return s.Mechanism != "" }

// ProducerConfig tunes the task writer.
type ProducerConfig struct {
	Compression  string        `mapstructure:"compression"` // none, gzip, snappy, lz4, zstd
	Attempts     int           `mapstructure:"attempts"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
}

// ConsumerConfig tunes the results reader.
type ConsumerConfig struct {
	StartOffset       string        `mapstructure:"start_offset"` // earliest, latest
	CommitInterval    time.Duration `mapstructure:"commit_interval"`
	SessionTimeout    time.Duration `mapstructure:"session_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  time.Duration `mapstructure:"rebalance_timeout"`
	// MaxLag degrades health once the results reader is further behind. Zero disables the check.
	MaxLag int64 `mapstructure:"max_lag"`
}

func orDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	orDefault(&c.GroupID, "scribegate")
	orDefault(&c.ClientID, "scribegate")
	orDefault(&c.DialTimeout, 10*time.Second)
	orDefault(&c.IdleTimeout, 30*time.Second)
	orDefault(&c.MetadataTTL, 6*time.Second)

	p := &c.Producer
	orDefault(&p.Compression, "snappy")
	orDefault(&p.Attempts, 3)
	orDefault(&p.BatchSize, 100)
	orDefault(&p.BatchTimeout, time.Second)
	orDefault(&p.WriteTimeout, 10*time.Second)
	orDefault(&p.RequiredAcks, -1)

	r := &c.Consumer
	orDefault(&r.StartOffset, "earliest")
	orDefault(&r.SessionTimeout, 30*time.Second)
	orDefault(&r.HeartbeatInterval, 3*time.Second)
	orDefault(&r.RebalanceTimeout, 30*time.Second)
}

// Validate reports every problem with an enabled config at once.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(len(c.Brokers) > 0, "brokers are required")
	check(c.Producer.Attempts > 0, "producer.attempts must be > 0")
	check(c.Producer.BatchSize > 0, "producer.batch_size must be > 0")
	check(c.Consumer.MaxLag >= 0, "consumer.max_lag must not be negative")
	for name, d := range map[string]time.Duration{
		"dial_timeout":                c.DialTimeout,
		"producer.write_timeout":      c.Producer.WriteTimeout,
		"consumer.session_timeout":    c.Consumer.SessionTimeout,
		"consumer.heartbeat_interval": c.Consumer.HeartbeatInterval,
	} {
		check(d > 0, "%s must be positive", name)
	}
	_, ok := startOffsets[c.Consumer.StartOffset]
	check(ok, "unsupported consumer.start_offset %q", c.Consumer.StartOffset)
	_, ok = compressionCodecs[c.Producer.Compression]
	check(ok, "unsupported producer.compression %q", c.Producer.Compression)

	if c.SASL.Enabled() {
		_, ok = saslMechanisms[c.SASL.Mechanism]
		check(ok, "unsupported sasl.mechanism %q", c.SASL.Mechanism)
		check(c.SASL.Username != "", "sasl.username is required")
	}
	if err := c.TLS.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
