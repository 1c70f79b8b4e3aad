package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/axoncache/internal/cache"
	"github.com/charlesng35/axoncache/internal/cachehelper"
	"github.com/charlesng35/axoncache/internal/database"
)

func ttl(d time.Duration) *time.Duration {
	return &d
}

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "console", cfg.Server.LogFormat)
	require.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.Equal(t, map[string]string{"sslmode": "require"}, cfg.Database.Postgres.Options)
	require.Equal(t, 25, cfg.Database.Pool.MaxOpenConns)
	require.Equal(t, 30*time.Minute, cfg.Database.Pool.ConnMaxLifetime)

	require.Equal(t, "redis", cfg.Cache.Store)
	require.Equal(t, "social", cfg.Cache.KeyPrefix)
	require.Equal(t, "v2", cfg.Cache.KeyVersion)
	require.Equal(t, "*/5 * * * *", cfg.Cache.SweepSchedule)
	require.Equal(t, 12*time.Hour, cfg.Cache.IndexRetention)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 3, cfg.Cache.Redis.DB)
	require.True(t, cfg.Cache.Redis.TLS)
	require.Equal(t, 2*time.Second, cfg.Cache.Redis.Timeout)
	require.False(t, cfg.Cache.Redis.FallbackToDatabase)

	require.Equal(t, ttl(300*time.Second), cfg.Cache.TTL.ChatMessages)
	require.Equal(t, ttl(45*time.Minute), cfg.Cache.TTL.PostDetail)
	require.Equal(t, ttl(-time.Second), cfg.Cache.TTL.PopularPosts)
	require.Equal(t, ttl(3600*time.Second), cfg.Cache.TTL.Recommendations, "unset regions keep defaults")

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.True(t, cfg.Monitoring.Health.Enabled)
}

func TestLoadConfigPath(t *testing.T) {
	fromDir, err := LoadConfigPath("testdata")
	require.NoError(t, err)
	require.Equal(t, 9090, fromDir.Server.Port)

	fromFile, err := LoadConfigPath(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, fromDir, fromFile)

	_, err = LoadConfigPath(filepath.Join("testdata", "missing"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "database", cfg.Cache.Store)
	require.Equal(t, "@every 1m", cfg.Cache.SweepSchedule)
	require.Equal(t, 24*time.Hour, cfg.Cache.IndexRetention)
	require.Equal(t, ttl(300*time.Second), cfg.Cache.TTL.ChatList)
	require.Equal(t, ttl(600*time.Second), cfg.Cache.TTL.Favourites)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("AXONCACHE_CACHE_STORE", "memory")
	t.Setenv("AXONCACHE_CACHE_TTL_NEWS_FEED", "90s")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Cache.Store)
	require.Equal(t, ttl(90*time.Second), cfg.Cache.TTL.NewsFeed)
}

func TestLoadConfigZeroTTLExpiresImmediately(t *testing.T) {
	t.Setenv("AXONCACHE_CACHE_TTL_PAGE", "0s")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, ttl(0), cfg.Cache.TTL.Page)
	require.Equal(t, time.Duration(0), cfg.Cache.HelperConfig().TTLs[cachehelper.RegionPage])

	helperCfg := CacheConfig{}.HelperConfig()
	require.Empty(t, helperCfg.TTLs, "unset regions fall back to the helper defaults")
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("AXONCACHE_CACHE_STORE", "mongodb")
	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "cache.store")
}

func TestConfigValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	cfg.Cache.SweepSchedule = "sometimes"
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Cache.Store = "redis"
	cfg.Cache.Redis.Address = " "
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	var nilCfg *Config
	require.Error(t, nilCfg.Validate())
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8000, LogLevel: "info", LogFormat: "json"},
		Cache: CacheConfig{
			Store:         "memory",
			SweepSchedule: "@every 1m",
		},
	}
}

func TestCacheConfigAdapters(t *testing.T) {
	cfg := CacheConfig{
		KeyPrefix:      " social ",
		KeyVersion:     "v2",
		IndexRetention: 2 * time.Hour,
		Redis: RedisCacheConfig{
			Address:   " redis:6379 ",
			Username:  " cache ",
			Password:  "pw",
			DB:        1,
			TLS:       true,
			Timeout:   time.Second,
			KeyPrefix: "app:",
		},
		TTL: TTLConfig{ChatMessages: ttl(300 * time.Second), PopularPosts: ttl(cache.NoExpiration), Page: ttl(0)},
	}

	require.Equal(t, cache.RedisConfig{
		Address:        "redis:6379",
		Username:       "cache",
		Password:       "pw",
		DB:             1,
		TLS:            true,
		Timeout:        time.Second,
		KeyPrefix:      "app:",
		IndexRetention: 2 * time.Hour,
	}, cfg.RedisClientConfig())

	helperCfg := cfg.HelperConfig()
	require.Equal(t, "social", helperCfg.KeyPrefix)
	require.Equal(t, "v2", helperCfg.KeyVersion)
	require.Equal(t, map[cachehelper.Region]time.Duration{
		cachehelper.RegionChatMessages: 300 * time.Second,
		cachehelper.RegionPopularPosts: cache.NoExpiration,
		cachehelper.RegionPage:         0,
	}, helperCfg.TTLs)
}

func TestDatabaseConnectionConfig(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "PostgreSQL",
		Postgres: DBAuthConfig{
			Host:     "db",
			Port:     5432,
			Database: "social",
			Username: "cache",
			Password: "pw",
			Options:  map[string]string{"sslmode": "require"},
		},
		Pool: PoolConfig{MaxOpenConns: 20, ConnMaxLifetime: time.Hour},
	}
	require.Equal(t, database.Config{
		Driver:          "postgres",
		Host:            "db",
		Port:            5432,
		Name:            "social",
		User:            "cache",
		Password:        "pw",
		Options:         map[string]string{"sslmode": "require"},
		MaxOpenConns:    20,
		ConnMaxLifetime: time.Hour,
	}, cfg.ConnectionConfig())

	require.Equal(t, "sqlite", DatabaseConfig{}.ConnectionConfig().Driver)
	require.Equal(t, "mysql", DatabaseConfig{Driver: "mysql"}.ConnectionConfig().Driver)
}
