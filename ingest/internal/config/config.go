package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/skus"
)

// Sink targets.
const (
	SinkOpenSearch = "opensearch"
	SinkJetStream  = "jetstream"
	SinkDiscard    = "discard"
)

// DLQ backends.
const (
	DLQFile      = "file"
	DLQJetStream = "jetstream"
	DLQNone      = "none"
)

type Config struct {
	Server       ServerConfig      `mapstructure:"server"`
	Logging      LoggingConfig     `mapstructure:"logging"`
	Ingestion    IngestionConfig   `mapstructure:"ingestion"`
	NATS         NATSConfig        `mapstructure:"nats"`
	Redis        RedisConfig       `mapstructure:"redis"`
	Database     DatabaseConfig    `mapstructure:"database"`
	OpenSearch   OpenSearchConfig  `mapstructure:"opensearch"`
	DLQ          DLQConfig         `mapstructure:"dlq"`
	Sink         SinkConfig        `mapstructure:"sink"`
	Xero         XeroConfig        `mapstructure:"xero"`
	Trainers     map[string]string `mapstructure:"trainers"`
	TrainersFile string            `mapstructure:"trainers_file"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type IngestionConfig struct {
	MaxEnvelopeSize   int64         `mapstructure:"max_envelope_size"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	Name          string        `mapstructure:"name"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	Token         string        `mapstructure:"token"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	// Queue makes the HTTP endpoints enqueue envelopes instead of
	// processing them inline.
	Queue    bool          `mapstructure:"queue"`
	Consume  bool          `mapstructure:"consume"`
	NakDelay time.Duration `mapstructure:"nak_delay"`
}

type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	URL       string        `mapstructure:"url"`
	DedupeTTL time.Duration `mapstructure:"dedupe_ttl"`
}

type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	Migrate bool   `mapstructure:"migrate"`
}

type OpenSearchConfig struct {
	URL           string        `mapstructure:"url"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	TLSSkipVerify bool          `mapstructure:"tls_skip_verify"`
	IndexPrefix   string        `mapstructure:"index_prefix"`
	ShardCount    int           `mapstructure:"shard_count"`
	ReplicaCount  int           `mapstructure:"replica_count"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type DLQConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

type SinkConfig struct {
	Targets []string `mapstructure:"targets"`
}

type XeroConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url"`
	TenantID    string        `mapstructure:"tenant_id"`
	AccessToken string        `mapstructure:"access_token"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8088)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("ingestion.max_envelope_size", 5<<20)
	v.SetDefault("ingestion.rate_limit_enabled", false)
	v.SetDefault("ingestion.rate_limit_requests", 600)
	v.SetDefault("ingestion.rate_limit_window", "1m")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "bagile-ingest")
	v.SetDefault("nats.username", "")
	v.SetDefault("nats.password", "")
	v.SetDefault("nats.token", "")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.queue", false)
	v.SetDefault("nats.consume", true)
	v.SetDefault("nats.nak_delay", "5s")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.dedupe_ttl", "24h")
	v.SetDefault("database.url", "")
	v.SetDefault("database.migrate", true)
	v.SetDefault("opensearch.url", "https://localhost:9200")
	v.SetDefault("opensearch.username", "admin")
	v.SetDefault("opensearch.password", "admin")
	v.SetDefault("opensearch.tls_skip_verify", true)
	v.SetDefault("opensearch.index_prefix", "bagile-records")
	v.SetDefault("opensearch.shard_count", 1)
	v.SetDefault("opensearch.replica_count", 0)
	v.SetDefault("opensearch.flush_interval", "1s")
	v.SetDefault("dlq.backend", DLQFile)
	v.SetDefault("dlq.path", "/var/lib/bagile/dlq")
	v.SetDefault("sink.targets", []string{SinkOpenSearch})
	v.SetDefault("xero.enabled", false)
	v.SetDefault("xero.base_url", "https://api.xero.com/api.xro/2.0")
	v.SetDefault("xero.tenant_id", "")
	v.SetDefault("xero.access_token", "")
	v.SetDefault("xero.interval", "15m")
	v.SetDefault("xero.timeout", "30s")
	v.SetDefault("trainers_file", "")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/bagile/ingest")
	}

	// Environment variables override
	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	if len(c.Sink.Targets) == 0 {
		errs = append(errs, errors.New("sink.targets must name at least one target"))
	}
	for _, target := range c.Sink.Targets {
		switch target {
		case SinkOpenSearch, SinkDiscard:
		case SinkJetStream:
			if !c.NATS.Enabled {
				errs = append(errs, errors.New("sink target jetstream requires nats.enabled"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown sink target %q", target))
		}
	}

	switch c.DLQ.Backend {
	case DLQFile, DLQNone:
	case DLQJetStream:
		if !c.NATS.Enabled {
			errs = append(errs, errors.New("dlq backend jetstream requires nats.enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dlq backend %q", c.DLQ.Backend))
	}

	if c.NATS.Queue && !c.NATS.Enabled {
		errs = append(errs, errors.New("nats.queue requires nats.enabled"))
	}

	if c.Ingestion.RateLimitEnabled && !c.Redis.Enabled {
		errs = append(errs, errors.New("ingestion.rate_limit_enabled requires redis.enabled"))
	}

	if c.Xero.Enabled {
		if c.Xero.TenantID == "" || c.Xero.AccessToken == "" {
			errs = append(errs, errors.New("xero.tenant_id and xero.access_token are required when xero.enabled"))
		}
		if c.Xero.Interval <= 0 {
			errs = append(errs, errors.New("xero.interval must be positive"))
		}
	}

	return errors.Join(errs...)
}

// HasSink reports whether target is one of the configured sink targets.
func (c *Config) HasSink(target string) bool {
	return slices.Contains(c.Sink.Targets, target)
}

// TrainerTable merges the built-in trainer codes with the inline table
// and the trainers file. Later sources win.
func (c *Config) TrainerTable() (map[string]string, error) {
	var fromFile map[string]string
	if c.TrainersFile != "" {
		table, err := skus.LoadTable(c.TrainersFile)
		if err != nil {
			return nil, fmt.Errorf("load trainers file: %w", err)
		}
		fromFile = table
	}
	return skus.Merge(skus.DefaultTrainers(), c.Trainers, fromFile), nil
}
