package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribegate/security"
	"github.com/kbukum/scribegate/security/tlstest"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{Enabled: true, Producer: ProducerConfig{Attempts: 5}}
	cfg.ApplyDefaults()

	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, "scribegate", cfg.GroupID)
	assert.Equal(t, 10*time.Second, cfg.DialTimeout)
	assert.Equal(t, "snappy", cfg.Producer.Compression)
	assert.Equal(t, 5, cfg.Producer.Attempts, "explicit values are kept")
	assert.Equal(t, -1, cfg.Producer.RequiredAcks)
	assert.Equal(t, "earliest", cfg.Consumer.StartOffset)
	assert.Zero(t, cfg.Consumer.CommitInterval, "commits stay synchronous")
	assert.Zero(t, cfg.Consumer.MaxLag)
	assert.False(t, cfg.SASL.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   []string
	}{
		{"disabled skips checks", func(c *Config) { c.Enabled = false; c.Brokers = nil }, nil},
		{"no brokers", func(c *Config) { c.Brokers = nil }, []string{"brokers are required"}},
		{"bad start offset", func(c *Config) { c.Consumer.StartOffset = "middle" }, []string{`start_offset "middle"`}},
		{"bad compression", func(c *Config) { c.Producer.Compression = "brotli" }, []string{`compression "brotli"`}},
		{"negative lag limit", func(c *Config) { c.Consumer.MaxLag = -1 }, []string{"max_lag"}},
		{"zero write timeout", func(c *Config) { c.Producer.WriteTimeout = -time.Second }, []string{"producer.write_timeout must be positive"}},
		{"sasl without user", func(c *Config) { c.SASL.Mechanism = "PLAIN" }, []string{"sasl.username is required"}},
		{"client cert without key", func(c *Config) {
			c.TLS = &security.ClientTLS{CertFile: "gateway.pem"}
		}, []string{"set together"}},
		{"all problems at once", func(c *Config) {
			c.SASL = SASLConfig{Mechanism: "GSSAPI", Username: "u"}
			c.Producer.BatchSize = -1
		}, []string{`sasl.mechanism "GSSAPI"`, "batch_size"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Enabled: true}
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestCreateDialerAndTransport(t *testing.T) {
	cfg := Config{
		Enabled:  true,
		ClientID: "gw",
		SASL:     SASLConfig{Mechanism: "PLAIN", Username: "svc", Password: "secret"},
	}
	cfg.ApplyDefaults()

	dialer, err := CreateDialer(&cfg)
	require.NoError(t, err)
	assert.Equal(t, "gw", dialer.ClientID)
	assert.Equal(t, 10*time.Second, dialer.Timeout)
	assert.IsType(t, plain.Mechanism{}, dialer.SASLMechanism)
	assert.Nil(t, dialer.TLS, "no tls block means plaintext")

	transport, err := CreateTransport(&cfg)
	require.NoError(t, err)
	assert.Equal(t, "gw", transport.ClientID)
	assert.Equal(t, 6*time.Second, transport.MetadataTTL)
	assert.NotNil(t, transport.SASL)

	cfg.SASL.Mechanism = "SCRAM-SHA-512"
	_, err = CreateDialer(&cfg)
	require.NoError(t, err)
}

func TestBrokerTLS(t *testing.T) {
	cfg := Config{Enabled: true, TLS: &security.ClientTLS{CAFile: "/does/not/exist.pem"}}
	cfg.ApplyDefaults()
	_, err := CreateTransport(&cfg)
	assert.ErrorContains(t, err, "read CA file")

	ca := tlstest.NewAuthority(t)
	gateway := ca.Issue("scribegate")
	cfg.TLS = &security.ClientTLS{CAFile: ca.CAFile, CertFile: gateway.CertFile, KeyFile: gateway.KeyFile}
	dialer, err := CreateDialer(&cfg)
	require.NoError(t, err)
	require.NotNil(t, dialer.TLS)
	assert.NotNil(t, dialer.TLS.RootCAs)
	assert.Len(t, dialer.TLS.Certificates, 1)
	assert.Nil(t, dialer.SASLMechanism)
}

func TestCodecAndOffset(t *testing.T) {
	assert.Equal(t, kafkago.LastOffset, ConsumerConfig{StartOffset: "latest"}.Offset())
	assert.Equal(t, kafkago.FirstOffset, ConsumerConfig{StartOffset: ""}.Offset())

	assert.Equal(t, kafkago.Zstd, ProducerConfig{Compression: "zstd"}.Codec())
	assert.Equal(t, kafkago.Compression(0), ProducerConfig{Compression: "none"}.Codec())
	assert.Equal(t, kafkago.Snappy, ProducerConfig{Compression: "unknown"}.Codec())
}
