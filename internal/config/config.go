// Package config loads dealscout configuration from an optional config.yaml
// and DEALSCOUT_* environment variables, and installs the global logger.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Lifecycle LifecycleConfig `yaml:"lifecycle" mapstructure:"lifecycle"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL      string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns         int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns         int32  `yaml:"min_conns" mapstructure:"min_conns"`
	ConnectAttempts  int    `yaml:"connect_attempts" mapstructure:"connect_attempts"`
	ConnectBackoffMs int    `yaml:"connect_backoff_ms" mapstructure:"connect_backoff_ms"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	ShutdownSecs       int      `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
	RateLimitRPS       float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst     int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	AdminToken         string   `yaml:"admin_token" mapstructure:"admin_token"`
}

// AuthConfig configures viewer identity resolution. An empty JWTSecret
// makes every caller anonymous.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	Issuer    string `yaml:"issuer" mapstructure:"issuer"`
}

// LifecycleConfig configures the deal status sweep.
type LifecycleConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	IntervalMins int    `yaml:"interval_mins" mapstructure:"interval_mins"`
	Timezone     string `yaml:"timezone" mapstructure:"timezone"`
}

// Location returns the sweep timezone, time.Local when unset.
func (c LifecycleConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, eris.Wrapf(err, "config: load timezone %q", c.Timezone)
	}
	return loc, nil
}

// DiscoveryConfig configures search defaults.
type DiscoveryConfig struct {
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit"`
}

// CacheConfig configures the Redis facet catalog cache. An empty RedisURL
// disables caching.
type CacheConfig struct {
	RedisURL   string `yaml:"redis_url" mapstructure:"redis_url"`
	FacetTTLMs int    `yaml:"facet_ttl_ms" mapstructure:"facet_ttl_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("store.connect_attempts", 5)
	v.SetDefault("store.connect_backoff_ms", 250)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout_secs", 15)
	v.SetDefault("server.shutdown_secs", 10)
	v.SetDefault("server.rate_limit_rps", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.admin_token", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("lifecycle.enabled", true)
	v.SetDefault("lifecycle.interval_mins", 60)
	v.SetDefault("lifecycle.timezone", "")
	v.SetDefault("discovery.default_limit", 20)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.facet_ttl_ms", 300000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. Every problem is reported
// in one error.
func (c *Config) Validate(command string) error {
	var problems []string
	require := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	switch command {
	case "serve":
		require(c.Store.DatabaseURL != "", "store.database_url is required")
		require(c.Server.Port > 0 && c.Server.Port <= 65535, "server.port must be between 1 and 65535, got %d", c.Server.Port)
		require(c.Server.RateLimitRPS >= 0, "server.rate_limit_rps must not be negative")
		require(c.Discovery.DefaultLimit >= 1 && c.Discovery.DefaultLimit <= 100,
			"discovery.default_limit must be between 1 and 100, got %d", c.Discovery.DefaultLimit)
		require(c.Lifecycle.IntervalMins > 0 || !c.Lifecycle.Enabled, "lifecycle.interval_mins must be positive")
	case "sweep", "deal":
		require(c.Store.DatabaseURL != "", "store.database_url is required")
	case "migrate":
		require(c.Store.DatabaseURL != "", "store.database_url is required")
	}

	if command == "serve" || command == "sweep" {
		if _, err := c.Lifecycle.Location(); err != nil {
			problems = append(problems, fmt.Sprintf("lifecycle.timezone %q is not a valid IANA zone", c.Lifecycle.Timezone))
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", command, strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
