// Package config loads service settings from an optional config file with
// TRANSFER_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "TRANSFER"

type Config struct {
	ServiceName  string             `mapstructure:"service_name"`
	Environment  string             `mapstructure:"environment"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Transfer     TransferConfig     `mapstructure:"transfer"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

type HTTPConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type TransferConfig struct {
	// Bound on each of the two lock acquisitions of a transfer.
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

type NotificationConfig struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Email     EmailConfig   `mapstructure:"email"`
	Webhook   WebhookConfig `mapstructure:"webhook"`
	Kafka     KafkaConfig   `mapstructure:"kafka"`
}

type EmailConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// WebhookConfig enables the webhook sink when URL is set.
type WebhookConfig struct {
	URL     string        `mapstructure:"url"`
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// KafkaConfig enables the Kafka sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configPath when it is non-empty, then applies environment
// overrides such as TRANSFER_TRANSFER_LOCK_TIMEOUT=500ms.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	if c.Transfer.LockTimeout <= 0 {
		return fmt.Errorf("transfer.lock_timeout must be positive, got %s", c.Transfer.LockTimeout)
	}
	if c.Notification.Workers <= 0 {
		return fmt.Errorf("notification.workers must be positive, got %d", c.Notification.Workers)
	}
	if c.Notification.QueueSize <= 0 {
		return fmt.Errorf("notification.queue_size must be positive, got %d", c.Notification.QueueSize)
	}
	if len(c.Notification.Kafka.Brokers) > 0 && c.Notification.Kafka.Topic == "" {
		return fmt.Errorf("notification.kafka.topic is required when brokers are set")
	}
	switch strings.ToLower(c.Logger.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("logger.format must be json or text, got %q", c.Logger.Format)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "funds_transfer")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 30*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.request_timeout", 30*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("transfer.lock_timeout", 2000*time.Millisecond)

	v.SetDefault("notification.workers", 3)
	v.SetDefault("notification.queue_size", 1000)
	v.SetDefault("notification.email.enabled", true)
	v.SetDefault("notification.webhook.url", "")
	v.SetDefault("notification.webhook.secret", "")
	v.SetDefault("notification.webhook.timeout", 5*time.Second)
	v.SetDefault("notification.kafka.brokers", []string{})
	v.SetDefault("notification.kafka.topic", "account-transfers")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}
