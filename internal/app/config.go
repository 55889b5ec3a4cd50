package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the InsurAI portal.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Claims        ClaimsConfig        `mapstructure:"claims"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Reports       ReportsConfig       `mapstructure:"reports"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Maintenance   MaintenanceConfig   `mapstructure:"maintenance"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	LogFormat string          `mapstructure:"log_format"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig throttles the public authentication routes.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// BackendConfig points the portal at the system-of-record REST API.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig captures portal session settings.
type AuthConfig struct {
	JWT     JWTSettings     `mapstructure:"jwt"`
	Session SessionSettings `mapstructure:"session"`
}

// JWTSettings configures portal access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// SessionSettings configures the server-side session store.
type SessionSettings struct {
	SealingKey string `mapstructure:"sealing_key"`
	Cache      bool   `mapstructure:"cache"`
}

// ClaimsConfig holds the claim engine thresholds.
type ClaimsConfig struct {
	PriorityThreshold decimal.Decimal `mapstructure:"priority_threshold"`
	FraudHighAmount   decimal.Decimal `mapstructure:"fraud_high_amount"`
	RecentWindow      time.Duration   `mapstructure:"recent_window"`
}

// NotificationsConfig tunes the notification poller.
type NotificationsConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Concurrency    int           `mapstructure:"concurrency"`
}

// ReportsConfig controls report history retention.
type ReportsConfig struct {
	HistoryLimit int `mapstructure:"history_limit"`
}

// CacheConfig controls the database-backed cache.
type CacheConfig struct {
	DirectoryTTL time.Duration `mapstructure:"directory_ttl"`
}

// MaintenanceConfig schedules background cleanup.
type MaintenanceConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("INSURAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.rate_limit.requests", 10)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/insurai.sqlite")

	v.SetDefault("backend.base_url", "http://localhost:8080")
	v.SetDefault("backend.timeout", "15s")

	v.SetDefault("auth.jwt.issuer", "insurai-portal")
	v.SetDefault("auth.jwt.access_token_ttl", "8h")
	v.SetDefault("auth.session.cache", true)

	v.SetDefault("claims.priority_threshold", "100000")
	v.SetDefault("claims.fraud_high_amount", "100000")
	v.SetDefault("claims.recent_window", "720h") // 30 days

	v.SetDefault("notifications.poll_interval", "30s")
	v.SetDefault("notifications.request_timeout", "10s")
	v.SetDefault("notifications.concurrency", 4)

	v.SetDefault("reports.history_limit", 10)

	v.SetDefault("cache.directory_ttl", "5m")

	v.SetDefault("maintenance.schedule", "@every 15m")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			stringToDecimalHook(),
		)
	}
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// stringToDecimalHook accepts money thresholds written as strings or numbers.
func stringToDecimalHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != decimalType {
			return data, nil
		}
		switch value := data.(type) {
		case string:
			value = strings.ReplaceAll(strings.TrimSpace(value), "_", "")
			if value == "" {
				return decimal.Zero, nil
			}
			return decimal.NewFromString(value)
		case int:
			return decimal.NewFromInt(int64(value)), nil
		case int64:
			return decimal.NewFromInt(value), nil
		case float64:
			return decimal.NewFromFloat(value), nil
		}
		return data, nil
	}
}
