package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every variable, e.g. STOREFRONT_HTTP_PORT.
const EnvPrefix = "STOREFRONT"

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

type Config struct {
	HTTP    HTTPConfig
	Catalog CatalogConfig
	KV      KVConfig
	Kafka   KafkaConfig
	Log     LogConfig
}

type HTTPConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	MaxBodyBytes    int64         `envconfig:"MAX_BODY_BYTES" default:"1048576"`
	MaxSessions     int           `envconfig:"MAX_SESSIONS" default:"10000"`
}

type CatalogConfig struct {
	BaseURL         string        `envconfig:"BASE_URL" default:"https://fakestoreapi.com"`
	Timeout         time.Duration `envconfig:"TIMEOUT" default:"10s"`
	BreakerFailures uint32        `envconfig:"BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`
}

type KVConfig struct {
	Backend       string        `envconfig:"BACKEND" default:"memory"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RedisTTL      time.Duration `envconfig:"REDIS_TTL" default:"0s"`
	SQLitePath    string        `envconfig:"SQLITE_PATH" default:"storefront.db"`
	MongoURI      string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDB       string        `envconfig:"MONGO_DB" default:"storefront"`
}

type KafkaConfig struct {
	Brokers       []string `envconfig:"BROKERS"`
	CheckoutTopic string   `envconfig:"CHECKOUT_TOPIC" default:"checkout-outbox"`
	OrdersTopic   string   `envconfig:"ORDERS_TOPIC" default:"order-completed"`
	GroupID       string   `envconfig:"GROUP_ID" default:"storefront"`
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.KV.Backend {
	case BackendMemory, BackendRedis, BackendSQLite, BackendMongo:
	default:
		return fmt.Errorf("unknown kv backend %q", c.KV.Backend)
	}
	if c.HTTP.Port == "" {
		return fmt.Errorf("http port is required")
	}
	if c.HTTP.MaxSessions < 1 {
		return fmt.Errorf("max sessions must be positive, got %d", c.HTTP.MaxSessions)
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog base url is required")
	}
	return nil
}
