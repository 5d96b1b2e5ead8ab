package gokafka

import (
	"crypto/tls"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rcrowley/go-metrics"
	"gopkg.in/yaml.v3"
)

// SASLMechanism is the name sent in a SaslHandshakeRequest; only the
// mechanisms this client actually implements a negotiator for are valid.
type SASLMechanism string

const (
	SASLTypePlaintext     SASLMechanism = "PLAIN"
	SASLTypeSCRAMSHA256   SASLMechanism = "SCRAM-SHA-256"
	SASLTypeSCRAMSHA512   SASLMechanism = "SCRAM-SHA-512"
	SASLTypeGSSAPI        SASLMechanism = "GSSAPI"
	SASLTypeOAuth         SASLMechanism = "OAUTHBEARER"
)

var validSASLMechanisms = map[SASLMechanism]bool{
	SASLTypePlaintext:   true,
	SASLTypeSCRAMSHA256: true,
	SASLTypeSCRAMSHA512: true,
	SASLTypeGSSAPI:      true,
	SASLTypeOAuth:       true,
}

// OffsetResetStrategy selects what PartitionOffsetManager.NextOffset does
// for a partition that has never had an offset committed under its group.
type OffsetResetStrategy string

const (
	// OffsetResetEarliest resumes from the oldest available offset.
	OffsetResetEarliest OffsetResetStrategy = "earliest"
	// OffsetResetLatest resumes from the newest offset, skipping
	// everything already on the partition.
	OffsetResetLatest OffsetResetStrategy = "latest"
	// OffsetResetFail makes NextOffset return a *UserError instead of
	// picking a default, so the caller decides how to handle a group with
	// no prior position on this partition.
	OffsetResetFail OffsetResetStrategy = "fail"
)

// GroupProtocolMode selects which wire protocol ConsumerGroup speaks with
// the coordinator. Named distinctly from the wire-level GroupProtocol type
// used inside JoinGroupRequest.
type GroupProtocolMode string

const (
	// GroupProtocolClassic is JoinGroup/SyncGroup/Heartbeat/LeaveGroup with
	// client-side partition assignment.
	GroupProtocolClassic GroupProtocolMode = "classic"
	// GroupProtocolConsumer is the KIP-848 single-RPC ConsumerGroupHeartbeat
	// protocol, with the broker computing and pushing assignment.
	GroupProtocolConsumer GroupProtocolMode = "consumer"
)

// Config carries every bootstrap option this client exposes, laid out the
// way config.go nests a single struct into named
// sections (Net, Metadata, Producer, Consumer, Admin, ...) rather than
// flattening everything into the top level.
type Config struct {
	// ClientID is sent on every request so broker-side logging/quotas can
	// attribute traffic to this client.
	ClientID string
	// RackID, if set, is reported in Fetch/Metadata requests so the broker
	// can prefer a same-rack replica (KIP-392).
	RackID string

	// Version pins the highest request version this client is allowed to
	// negotiate up to; MaxVersion (utils.go) is the ceiling this client
	// code actually implements.
	Version KafkaVersion

	// ChannelBufferSize sizes the produce/consume message and error
	// channels; broker response queues are sized by Net.MaxOpenRequests.
	ChannelBufferSize int

	// MetricRegistry receives the counters/gauges this client updates; nil
	// disables metrics entirely without any dispatch overhead.
	MetricRegistry metrics.Registry

	Net struct {
		MaxOpenRequests int
		DialTimeout     time.Duration
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration

		TLS struct {
			Enable bool
			Config *tls.Config
		}

		SASL struct {
			Enable    bool
			Mechanism SASLMechanism
			Handshake bool
			User      string
			Password  string

			SCRAMClient SCRAMClientGenerator

			GSSAPI GSSAPIConfig

			TokenProvider AccessTokenProvider

			// SessionLifetime, when greater than zero, arms a timer at 80%
			// of its value to proactively re-authenticate before the
			// broker's own session-lifetime-ms expiry tears the connection
			// down mid-flight.
			SessionLifetime time.Duration
		}

		KeepAlive time.Duration
	}

	Metadata struct {
		Retry struct {
			Max     int
			Backoff time.Duration
		}
		RefreshFrequency time.Duration
		Full             bool
		Timeout          time.Duration
	}

	Producer struct {
		MaxMessageBytes  int
		RequiredAcks     RequiredAcks
		Timeout          time.Duration
		Compression      CompressionCodec
		CompressionLevel int
		Partitioner      func(topic string) Partitioner
		Idempotent       bool

		Transaction struct {
			ID        string
			Timeout   time.Duration
			Retry     struct {
				Max     int
				Backoff time.Duration
			}
		}

		Return struct {
			Successes bool
			Errors    bool
		}

		Flush struct {
			Bytes       int
			Messages    int
			Frequency   time.Duration
			MaxMessages int
		}

		Retry struct {
			Max     int
			Backoff time.Duration
		}

		Interceptors []ProducerInterceptor
	}

	Consumer struct {
		Retry struct {
			Backoff     time.Duration
			BackoffFunc func(retries int) time.Duration
		}

		Fetch struct {
			Min     int32
			Default int32
			Max     int32
		}

		MaxWaitTime      time.Duration
		MaxProcessingTime time.Duration
		IsolationLevel   IsolationLevel

		Return struct {
			Errors bool
		}

		Offsets struct {
			Retry struct {
				Max int
			}
			AutoCommit struct {
				Enable   bool
				Interval time.Duration
			}
			// AutoReset selects how NextOffset falls back for a
			// partition with no committed offset in this group.
			AutoReset OffsetResetStrategy
		}

		Group struct {
			// Protocol selects classic JoinGroup/SyncGroup/Heartbeat
			// coordination versus the modern single-RPC
			// ConsumerGroupHeartbeat protocol.
			Protocol GroupProtocolMode

			Session struct {
				Timeout time.Duration
			}
			Heartbeat struct {
				Interval time.Duration
			}
			Rebalance struct {
				Strategy GroupBalanceStrategy
				Timeout  time.Duration
				Retry    struct {
					Max     int
					Backoff time.Duration
				}
			}
			InstanceId string
		}

		Interceptors []ConsumerInterceptor
	}

	Admin struct {
		Retry struct {
			Max     int
			Backoff time.Duration
		}
		Timeout time.Duration
	}
}

// NewConfig returns a Config populated with sane defaults: small retry
// budgets, a 10-minute metadata refresh, WaitForLocal acks, range-strategy
// consumer groups.
func NewConfig() *Config {
	c := &Config{}

	c.ClientID = "gokafka"
	c.Version = MaxVersion
	c.ChannelBufferSize = 256
	c.MetricRegistry = metrics.NewRegistry()

	c.Net.MaxOpenRequests = 5
	c.Net.DialTimeout = 30 * time.Second
	c.Net.ReadTimeout = 30 * time.Second
	c.Net.WriteTimeout = 30 * time.Second
	c.Net.KeepAlive = 0
	c.Net.SASL.Handshake = true

	c.Metadata.Retry.Max = 3
	c.Metadata.Retry.Backoff = 250 * time.Millisecond
	c.Metadata.RefreshFrequency = 10 * time.Minute
	c.Metadata.Timeout = 10 * time.Second

	c.Producer.MaxMessageBytes = 1024 * 1024
	c.Producer.RequiredAcks = WaitForLocal
	c.Producer.Timeout = 10 * time.Second
	c.Producer.Partitioner = NewHashPartitioner
	c.Producer.Retry.Max = 3
	c.Producer.Retry.Backoff = 100 * time.Millisecond
	c.Producer.Flush.MaxMessages = 0

	c.Consumer.Fetch.Min = 1
	c.Consumer.Fetch.Default = 1024 * 1024
	c.Consumer.MaxWaitTime = 500 * time.Millisecond
	c.Consumer.MaxProcessingTime = 100 * time.Millisecond
	c.Consumer.Retry.Backoff = 2 * time.Second
	c.Consumer.Offsets.AutoCommit.Enable = true
	c.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second
	c.Consumer.Offsets.AutoReset = OffsetResetLatest
	c.Consumer.Offsets.Retry.Max = 3
	c.Consumer.Group.Protocol = GroupProtocolClassic
	c.Consumer.Group.Session.Timeout = 10 * time.Second
	c.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	c.Consumer.Group.Rebalance.Strategy = NewBalanceStrategyRange()
	c.Consumer.Group.Rebalance.Timeout = 60 * time.Second
	c.Consumer.Group.Rebalance.Retry.Max = 4
	c.Consumer.Group.Rebalance.Retry.Backoff = 2 * time.Second

	c.Admin.Retry.Max = 5
	c.Admin.Retry.Backoff = 100 * time.Millisecond
	c.Admin.Timeout = 3 * time.Second

	return c
}

var clientIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Validate checks the Config for self-consistency, mirroring the
// Config.Validate() contract invoked by NewClient before it dials anything.
func (c *Config) Validate() error {
	if c.Net.MaxOpenRequests <= 0 {
		return ConfigurationError("Net.MaxOpenRequests must be > 0")
	}
	if c.ChannelBufferSize < 0 {
		return ConfigurationError("ChannelBufferSize must be >= 0")
	}
	if c.ClientID != "" && !clientIDPattern.MatchString(c.ClientID) {
		return ConfigurationError("ClientID is invalid")
	}

	if c.Net.SASL.Enable {
		if !validSASLMechanisms[c.Net.SASL.Mechanism] {
			return ConfigurationError(fmt.Sprintf("SASL mechanism %q is not supported", c.Net.SASL.Mechanism))
		}
		switch c.Net.SASL.Mechanism {
		case SASLTypePlaintext:
			if c.Net.SASL.User == "" {
				return ConfigurationError("SASL.User is required for PLAIN")
			}
		case SASLTypeSCRAMSHA256, SASLTypeSCRAMSHA512:
			if c.Net.SASL.SCRAMClient == nil {
				return ConfigurationError("SASL.SCRAMClient must be set for SCRAM mechanisms")
			}
		case SASLTypeOAuth:
			if c.Net.SASL.TokenProvider == nil {
				return ConfigurationError("SASL.TokenProvider must be set for OAUTHBEARER")
			}
		}
	}

	if c.Producer.RequiredAcks > 1 {
		return ConfigurationError("Producer.RequiredAcks must be -1, 0, or 1")
	}
	if c.Producer.Timeout <= 0 {
		return ConfigurationError("Producer.Timeout must be > 0")
	}
	if c.Producer.Idempotent {
		if c.Producer.RequiredAcks != WaitForAll {
			return ConfigurationError("Idempotent producer requires RequiredAcks=WaitForAll")
		}
		if c.Net.MaxOpenRequests > 1 {
			return ConfigurationError("Idempotent producer requires Net.MaxOpenRequests=1 to preserve sequence ordering")
		}
	}
	if c.Producer.Transaction.ID != "" && !c.Producer.Idempotent {
		return ConfigurationError("Producer.Transaction.ID requires Producer.Idempotent=true")
	}

	if c.Consumer.Fetch.Min <= 0 {
		return ConfigurationError("Consumer.Fetch.Min must be > 0")
	}
	if c.Consumer.Fetch.Default <= 0 {
		return ConfigurationError("Consumer.Fetch.Default must be > 0")
	}
	if c.Consumer.Fetch.Max < 0 {
		return ConfigurationError("Consumer.Fetch.Max must be >= 0")
	}
	if c.Consumer.MaxWaitTime < 1*time.Millisecond {
		return ConfigurationError("Consumer.MaxWaitTime must be >= 1ms")
	}
	if c.Consumer.Group.Session.Timeout <= c.Consumer.Group.Heartbeat.Interval {
		return ConfigurationError("Consumer.Group.Session.Timeout must be greater than Heartbeat.Interval")
	}
	switch c.Consumer.Offsets.AutoReset {
	case OffsetResetEarliest, OffsetResetLatest, OffsetResetFail:
	default:
		return ConfigurationError(fmt.Sprintf("Consumer.Offsets.AutoReset %q is not one of earliest, latest, fail", c.Consumer.Offsets.AutoReset))
	}
	switch c.Consumer.Group.Protocol {
	case GroupProtocolClassic, GroupProtocolConsumer:
	default:
		return ConfigurationError(fmt.Sprintf("Consumer.Group.Protocol %q is not one of classic, consumer", c.Consumer.Group.Protocol))
	}
	if c.Consumer.Group.Protocol == GroupProtocolConsumer && !c.Version.IsAtLeast(V3_5_0_0) {
		return ConfigurationError("Consumer.Group.Protocol=consumer requires Version >= 3.5.0")
	}

	if !c.Version.IsAtLeast(MinVersion) {
		return ConfigurationError(fmt.Sprintf("Version must be at least %s", MinVersion))
	}

	return nil
}

// ConfigurationError is returned by Validate (and anything else that
// rejects a caller-supplied option before it reaches the wire).
type ConfigurationError string

func (err ConfigurationError) Error() string {
	return "kafka: invalid configuration (" + string(err) + ")"
}

func (err ConfigurationError) CanRetry() bool { return false }

// LoadConfigFile reads a YAML-encoded Config from disk, for operators who
// want file-based bootstrap instead of constructing Config programmatically.
// Fields not present in the file keep NewConfig's defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kafka: reading config file: %w", err)
	}

	type fileConfig struct {
		ClientID string `yaml:"client_id"`
		RackID   string `yaml:"rack_id"`
		Version  string `yaml:"version"`

		Net struct {
			DialTimeout  time.Duration `yaml:"dial_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			SASL         struct {
				Enable    bool          `yaml:"enable"`
				Mechanism SASLMechanism `yaml:"mechanism"`
				User      string        `yaml:"user"`
				Password  string        `yaml:"password"`
			} `yaml:"sasl"`
		} `yaml:"net"`

		Producer struct {
			RequiredAcks int16  `yaml:"required_acks"`
			Compression  string `yaml:"compression"`
			Idempotent   bool   `yaml:"idempotent"`
		} `yaml:"producer"`

		Consumer struct {
			Offsets struct {
				AutoReset string `yaml:"auto_reset"`
			} `yaml:"offsets"`
			Group struct {
				Protocol          string        `yaml:"protocol"`
				SessionTimeout    time.Duration `yaml:"session_timeout"`
				HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
			} `yaml:"group"`
		} `yaml:"consumer"`
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("kafka: parsing config file: %w", err)
	}

	conf := NewConfig()
	if fc.ClientID != "" {
		conf.ClientID = fc.ClientID
	}
	if fc.RackID != "" {
		conf.RackID = fc.RackID
	}
	if fc.Version != "" {
		var major, minor, veryMinor, patch uint
		if n, _ := fmt.Sscanf(fc.Version, "%d.%d.%d.%d", &major, &minor, &veryMinor, &patch); n < 3 {
			return nil, ConfigurationError(fmt.Sprintf("version %q is not a Kafka release number", fc.Version))
		}
		conf.Version = newKafkaVersion(major, minor, veryMinor, patch)
	}
	if fc.Net.DialTimeout != 0 {
		conf.Net.DialTimeout = fc.Net.DialTimeout
	}
	if fc.Net.ReadTimeout != 0 {
		conf.Net.ReadTimeout = fc.Net.ReadTimeout
	}
	if fc.Net.WriteTimeout != 0 {
		conf.Net.WriteTimeout = fc.Net.WriteTimeout
	}
	if fc.Net.SASL.Enable {
		conf.Net.SASL.Enable = true
		conf.Net.SASL.Mechanism = fc.Net.SASL.Mechanism
		conf.Net.SASL.User = fc.Net.SASL.User
		conf.Net.SASL.Password = fc.Net.SASL.Password
	}
	if fc.Producer.RequiredAcks != 0 {
		conf.Producer.RequiredAcks = RequiredAcks(fc.Producer.RequiredAcks)
	}
	if fc.Producer.Compression != "" {
		if err := (&conf.Producer.Compression).UnmarshalText([]byte(fc.Producer.Compression)); err != nil {
			return nil, fmt.Errorf("kafka: parsing config file: %w", err)
		}
	}
	conf.Producer.Idempotent = fc.Producer.Idempotent
	if fc.Consumer.Offsets.AutoReset != "" {
		conf.Consumer.Offsets.AutoReset = OffsetResetStrategy(fc.Consumer.Offsets.AutoReset)
	}
	if fc.Consumer.Group.Protocol != "" {
		conf.Consumer.Group.Protocol = GroupProtocolMode(fc.Consumer.Group.Protocol)
	}
	if fc.Consumer.Group.SessionTimeout != 0 {
		conf.Consumer.Group.Session.Timeout = fc.Consumer.Group.SessionTimeout
	}
	if fc.Consumer.Group.HeartbeatInterval != 0 {
		conf.Consumer.Group.Heartbeat.Interval = fc.Consumer.Group.HeartbeatInterval
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
