package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/charlesng35/axoncache/pkg/validator"
)

// Config represents the runtime configuration for the cache service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the admin HTTP server and logging.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	LogLevel        string        `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"omitempty,oneof=json console"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver" validate:"omitempty,oneof=sqlite postgres postgresql mysql"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
	Pool     PoolConfig   `mapstructure:"pool"`
}

// PoolConfig tunes the connection pool of networked databases. Zero keeps driver defaults.
type PoolConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// Options are extra DSN parameters such as sslmode or tls.
	Options map[string]string `mapstructure:"options"`
}

// CacheConfig selects the entry store and tunes key layout, TTLs and background sweeping.
type CacheConfig struct {
	Store          string           `mapstructure:"store" validate:"oneof=memory database redis"`
	KeyPrefix      string           `mapstructure:"key_prefix" validate:"max=32"`
	KeyVersion     string           `mapstructure:"key_version" validate:"max=16"`
	SweepSchedule  string           `mapstructure:"sweep_schedule" validate:"cronspec"`
	IndexRetention time.Duration    `mapstructure:"index_retention" validate:"gte=0"`
	Redis          RedisCacheConfig `mapstructure:"redis"`
	TTL            TTLConfig        `mapstructure:"ttl"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Address   string        `mapstructure:"address"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db" validate:"gte=0"`
	TLS       bool          `mapstructure:"tls"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
	KeyPrefix string        `mapstructure:"key_prefix"`

	// FallbackToDatabase keeps the service running on the database store when Redis is down at startup.
	FallbackToDatabase bool `mapstructure:"fallback_to_database"`
}

// TTLConfig holds the TTL of every cache region. A nil field keeps the region's built-in
// default, zero expires entries immediately and a negative duration disables expiry.
type TTLConfig struct {
	ChatList        *time.Duration `mapstructure:"chat_list"`
	ChatMessages    *time.Duration `mapstructure:"chat_messages"`
	NewsFeed        *time.Duration `mapstructure:"news_feed"`
	Favourites      *time.Duration `mapstructure:"favourites"`
	PostDetail      *time.Duration `mapstructure:"post_detail"`
	Recommendations *time.Duration `mapstructure:"recommendations"`
	PopularPosts    *time.Duration `mapstructure:"popular_posts"`
	Page            *time.Duration `mapstructure:"page"`
	QuickValidation *time.Duration `mapstructure:"quick_validation"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,startswith=/"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults and
// validates the result.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("AXONCACHE")
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

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadConfigPath loads configuration from a directory or from the directory holding a file.
// An empty path searches the default locations.
func LoadConfigPath(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return LoadConfig()
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return LoadConfig(path)
	case err == nil:
		return LoadConfig(filepath.Dir(path))
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("config path %q does not exist", path)
	default:
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}
	if err := validator.ValidateStruct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Cache.Store == "redis" && strings.TrimSpace(c.Cache.Redis.Address) == "" {
		return errors.New("config: cache.redis.address is required when cache.store is redis")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/axoncache.sqlite")

	v.SetDefault("cache.store", "database")
	v.SetDefault("cache.key_prefix", "")
	v.SetDefault("cache.key_version", "")
	v.SetDefault("cache.sweep_schedule", "@every 1m")
	v.SetDefault("cache.index_retention", "24h")

	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.key_prefix", "axoncache:")
	v.SetDefault("cache.redis.fallback_to_database", true)

	v.SetDefault("cache.ttl.chat_list", "300s")
	v.SetDefault("cache.ttl.chat_messages", "300s")
	v.SetDefault("cache.ttl.news_feed", "300s")
	v.SetDefault("cache.ttl.favourites", "600s")
	v.SetDefault("cache.ttl.post_detail", "1800s")
	v.SetDefault("cache.ttl.recommendations", "3600s")
	v.SetDefault("cache.ttl.popular_posts", "1800s")
	v.SetDefault("cache.ttl.page", "300s")
	v.SetDefault("cache.ttl.quick_validation", "3600s")

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
		)
	}
}
