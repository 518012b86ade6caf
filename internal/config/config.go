package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverBolt     = "bolt"

	LockingDriverMemory   = "memory"
	LockingDriverPostgres = "postgres"
)

type Config struct {
	Primary        Primary              `koanf:"primary"`
	Server         ServerConfig         `koanf:"server"`
	Database       DatabaseConfig       `koanf:"database" validate:"-"`
	Storage        StorageConfig        `koanf:"storage"`
	Locking        LockingConfig        `koanf:"locking"`
	Logger         LoggerConfig         `koanf:"logger"`
	GatewayClient  GatewayClientConfig  `koanf:"gateway_client"`
	Worldpay       WorldpayConfig       `koanf:"worldpay"`
	Smartpay       GatewayConfig        `koanf:"smartpay"`
	Epdq           GatewayConfig        `koanf:"epdq"`
	Stripe         StripeConfig         `koanf:"stripe"`
	CaptureProcess CaptureProcessConfig `koanf:"capture_process"`
	Expiry         ExpiryConfig         `koanf:"expiry"`
	Metrics        MetricsConfig        `koanf:"metrics"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host             string        `koanf:"host" validate:"required"`
	Port             int           `koanf:"port" validate:"required"`
	User             string        `koanf:"user" validate:"required"`
	Password         string        `koanf:"password" validate:"required"`
	Name             string        `koanf:"name" validate:"required"`
	SSLMode          string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns     int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns     int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime  time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime  time.Duration `koanf:"conn_max_idle_time" validate:"required"`
	ApplicationName  string        `koanf:"application_name"`
	StatementTimeout time.Duration `koanf:"statement_timeout"`
}

type StorageConfig struct {
	Driver   string `koanf:"driver" validate:"required,oneof=postgres bolt"`
	BoltPath string `koanf:"bolt_path"`
}

type LockingConfig struct {
	Driver string `koanf:"driver" validate:"required,oneof=memory postgres"`
}

type GatewayClientConfig struct {
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"required"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"required"`
}

type GatewayURLs struct {
	Test string `koanf:"test" validate:"omitempty,url"`
	Live string `koanf:"live" validate:"omitempty,url"`
}

type GatewayConfig struct {
	URLs GatewayURLs `koanf:"urls"`
}

type WorldpayConfig struct {
	URLs                      GatewayURLs `koanf:"urls"`
	SecureNotificationEnabled bool        `koanf:"secure_notification_enabled"`
	NotificationDomain        string      `koanf:"notification_domain"`
}

type StripeConfig struct {
	URLs       GatewayURLs `koanf:"urls"`
	APIVersion string      `koanf:"api_version"`
}

type CaptureProcessConfig struct {
	Interval           time.Duration `koanf:"interval" validate:"required"`
	BatchSize          int           `koanf:"batch_size" validate:"required,min=1"`
	RetryFailuresEvery time.Duration `koanf:"retry_failures_every" validate:"required"`
	MaximumRetries     int           `koanf:"maximum_retries" validate:"min=0"`
	ConcurrentCaptures int           `koanf:"concurrent_captures" validate:"required,min=1"`
}

type ExpiryConfig struct {
	Interval     time.Duration `koanf:"interval" validate:"required"`
	ChargeWindow time.Duration `koanf:"charge_window" validate:"required"`
	BatchSize    int           `koanf:"batch_size" validate:"required,min=1"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"omitempty,oneof=text json"`
}

func defaults() map[string]any {
	return map[string]any{
		"primary.env":                          "development",
		"server.port":                          "8080",
		"server.read_timeout":                  "30s",
		"server.write_timeout":                 "30s",
		"server.idle_timeout":                  "60s",
		"storage.driver":                       StorageDriverPostgres,
		"storage.bolt_path":                    "connector.db",
		"locking.driver":                       LockingDriverMemory,
		"logger.level":                         "info",
		"logger.format":                        "text",
		"gateway_client.connect_timeout":       "5s",
		"gateway_client.read_timeout":          "30s",
		"capture_process.interval":             "1m",
		"capture_process.batch_size":           100,
		"capture_process.retry_failures_every": "1h",
		"capture_process.maximum_retries":      48,
		"capture_process.concurrent_captures":  4,
		"expiry.interval":                      "5m",
		"expiry.charge_window":                 "90m",
		"expiry.batch_size":                    100,
		"metrics.enabled":                      true,
		"metrics.path":                         "/metrics",
	}
}

// LoadConfig layers defaults, an optional YAML file named by GATEWAY_CONFIG_FILE
// and GATEWAY_ prefixed environment variables, then validates the result.
func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load config defaults", "error", err)
		return nil, err
	}

	if path := os.Getenv("GATEWAY_CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			logger.Error("failed to load config file", "path", path, "error", err)
			return nil, err
		}
	}

	err := k.Load(env.Provider("GATEWAY_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "GATEWAY_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	if err := mainConfig.Validate(); err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

// Validate checks struct tags and the rules that depend on the selected drivers.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return err
	}

	needsPostgres := c.Storage.Driver == StorageDriverPostgres || c.Locking.Driver == LockingDriverPostgres
	if needsPostgres {
		if err := validate.Struct(c.Database); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if c.Storage.Driver == StorageDriverBolt && c.Storage.BoltPath == "" {
		return fmt.Errorf("storage.bolt_path is required for the bolt driver")
	}
	if c.Worldpay.SecureNotificationEnabled && c.Worldpay.NotificationDomain == "" {
		return fmt.Errorf("worldpay.notification_domain is required when secure notifications are enabled")
	}
	return nil
}
