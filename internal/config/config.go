// Package config loads service settings from defaults, an optional YAML file
// and SHORTURL_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go-shorturl/internal/eventlog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const envPrefix = "SHORTURL"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	ShortCode ShortCodeConfig `mapstructure:"shortcode"`
	Entry     EntryConfig     `mapstructure:"entry"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Log       eventlog.Config `mapstructure:"log"`
}

type ServerConfig struct {
	Port                 int           `mapstructure:"port"`
	PortFallbackAttempts int           `mapstructure:"port_fallback_attempts"`
	BaseURL              string        `mapstructure:"base_url"`
	ShutdownTimeout      time.Duration `mapstructure:"shutdown_timeout"`
	CORSAllowedOrigins   []string      `mapstructure:"cors_allowed_origins"`
}

type StorageConfig struct {
	Driver string      `mapstructure:"driver"`
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ShortCodeConfig struct {
	CollisionPolicy string `mapstructure:"collision_policy"`
	MaxAttempts     int    `mapstructure:"max_attempts"`
}

type EntryConfig struct {
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

type SweepConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Schedule  string        `mapstructure:"schedule"`
	Retention time.Duration `mapstructure:"retention"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.port_fallback_attempts", 5)
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.dsn", "data/shorturl.db")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)

	v.SetDefault("shortcode.collision_policy", "retry")
	v.SetDefault("shortcode.max_attempts", 5)

	v.SetDefault("entry.default_ttl", 30*time.Minute)

	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.schedule", "@every 1m")
	v.SetDefault("sweep.retention", time.Duration(0))

	v.SetDefault("log.level", "debug")
	v.SetDefault("log.context", "backend")
	v.SetDefault("log.path", "events.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", false)
	v.SetDefault("log.console", true)
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	return validation.Errors{
		"server":    c.Server.validate(),
		"storage":   c.Storage.validate(),
		"shortcode": c.ShortCode.validate(),
		"entry": validation.ValidateStruct(&c.Entry,
			validation.Field(&c.Entry.DefaultTTL, validation.Required, validation.Min(time.Second)),
		),
		"sweep": c.Sweep.validate(),
		"log": validation.ValidateStruct(&c.Log,
			validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "error", "fatal")),
			validation.Field(&c.Log.Path, validation.Required),
		),
	}.Filter()
}

func (s ServerConfig) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&s.PortFallbackAttempts, validation.Min(0)),
		validation.Field(&s.ShutdownTimeout, validation.Required),
		validation.Field(&s.BaseURL, validation.Required),
	)
}

func (s StorageConfig) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required,
			validation.In(DriverMemory, DriverSQLite, DriverPostgres, DriverRedis)),
		validation.Field(&s.DSN, validation.When(s.Driver == DriverSQLite || s.Driver == DriverPostgres, validation.Required)),
		validation.Field(&s.Redis, validation.When(s.Driver == DriverRedis, validation.By(func(interface{}) error {
			if s.Redis.Addr == "" {
				return errors.New("addr is required")
			}
			return nil
		}))),
	)
}

func (s ShortCodeConfig) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.CollisionPolicy, validation.Required, validation.In("retry", "reject")),
		validation.Field(&s.MaxAttempts, validation.Required, validation.Min(1)),
	)
}

func (s SweepConfig) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Schedule, validation.When(s.Enabled, validation.Required, validation.By(func(interface{}) error {
			if _, err := cron.ParseStandard(s.Schedule); err != nil {
				return fmt.Errorf("bad cron spec: %v", err)
			}
			return nil
		}))),
		validation.Field(&s.Retention, validation.Min(time.Duration(0))),
	)
}
