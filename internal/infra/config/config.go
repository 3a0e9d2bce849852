// Package config loads server settings from a YAML file and CASHIER_
// environment variables, on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
)

const EnvPrefix = "CASHIER"

type Config struct {
	HTTP          HTTPConfig           `mapstructure:"http"`
	Database      DatabaseConfig       `mapstructure:"database"`
	Gateway       GatewayConfig        `mapstructure:"gateway"`
	Organizations []OrganizationConfig `mapstructure:"organizations"`
	Kafka         KafkaConfig          `mapstructure:"kafka"`
	Outbox        OutboxConfig         `mapstructure:"outbox"`
	Retry         RetryConfig          `mapstructure:"retry"`
	Reconcile     ReconcileConfig      `mapstructure:"reconcile"`
	Log           LogConfig            `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	// Driver is sqlite, sqlite3, mysql or memory.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type GatewayConfig struct {
	// Mode is sandbox, production or fake. Fake runs the in-process gateway.
	Mode     string        `mapstructure:"mode"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type OrganizationConfig struct {
	ID             int64  `mapstructure:"id"`
	APILoginID     string `mapstructure:"api_login_id"`
	TransactionKey string `mapstructure:"transaction_key"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type RetryConfig struct {
	MaxRetry  int           `mapstructure:"max_retry"`
	BaseDelay time.Duration `mapstructure:"base_delay"`
	MaxDelay  time.Duration `mapstructure:"max_delay"`
}

type ReconcileConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Window   time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:cashier.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	v.SetDefault("gateway.mode", "sandbox")
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "cashier.notifications")
	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("retry.max_retry", 5)
	v.SetDefault("retry.base_delay", 2*time.Second)
	v.SetDefault("retry.max_delay", time.Minute)
	v.SetDefault("reconcile.interval", time.Hour)
	v.SetDefault("reconcile.window", 30*24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads path when it is set. A missing file is an error only when
// path was given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("cashier")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "sqlite3", "mysql", "memory":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}

	switch c.Gateway.Mode {
	case "sandbox", "production", "fake":
	default:
		return fmt.Errorf("gateway.mode %q is not supported", c.Gateway.Mode)
	}

	seen := make(map[int64]bool, len(c.Organizations))
	for _, org := range c.Organizations {
		if org.ID <= 0 {
			return errors.New("organizations: id must be positive")
		}
		if seen[org.ID] {
			return fmt.Errorf("organizations: id %d listed twice", org.ID)
		}
		seen[org.ID] = true
		if c.Gateway.Mode != "fake" && (org.APILoginID == "" || org.TransactionKey == "") {
			return fmt.Errorf("organizations: %d needs api_login_id and transaction_key", org.ID)
		}
	}

	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("kafka: brokers and topic are required when enabled")
	}
	if c.Outbox.BatchSize <= 0 {
		return errors.New("outbox.batch_size must be positive")
	}
	return nil
}

// Credentials indexes merchant credentials by organization id.
func (c *Config) Credentials() map[int64]gateway.Credentials {
	out := make(map[int64]gateway.Credentials, len(c.Organizations))
	for _, org := range c.Organizations {
		out[org.ID] = gateway.Credentials{
			APILoginID:     org.APILoginID,
			TransactionKey: org.TransactionKey,
		}
	}
	return out
}

// EndpointOr is the explicit override, else the endpoint of the mode.
func (g GatewayConfig) EndpointOr(sandbox, production string) string {
	switch {
	case g.Endpoint != "":
		return g.Endpoint
	case g.Mode == "production":
		return production
	default:
		return sandbox
	}
}
