package app

import (
	"strings"
	"time"

	"github.com/charlesng35/axoncache/internal/cache"
	"github.com/charlesng35/axoncache/internal/cachehelper"
	"github.com/charlesng35/axoncache/internal/database"
)

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:        strings.TrimSpace(c.Redis.Address),
		Username:       strings.TrimSpace(c.Redis.Username),
		Password:       c.Redis.Password,
		DB:             c.Redis.DB,
		TLS:            c.Redis.TLS,
		Timeout:        c.Redis.Timeout,
		KeyPrefix:      strings.TrimSpace(c.Redis.KeyPrefix),
		IndexRetention: c.IndexRetention,
	}
}

// HelperConfig converts key layout and region TTLs for the cache helper. Regions without a
// configured TTL keep the helper's built-in default.
func (c CacheConfig) HelperConfig() cachehelper.Config {
	configured := map[cachehelper.Region]*time.Duration{
		cachehelper.RegionChatList:        c.TTL.ChatList,
		cachehelper.RegionChatMessages:    c.TTL.ChatMessages,
		cachehelper.RegionNewsFeed:        c.TTL.NewsFeed,
		cachehelper.RegionFavourites:      c.TTL.Favourites,
		cachehelper.RegionPostDetail:      c.TTL.PostDetail,
		cachehelper.RegionRecommendations: c.TTL.Recommendations,
		cachehelper.RegionPopularPosts:    c.TTL.PopularPosts,
		cachehelper.RegionPage:            c.TTL.Page,
		cachehelper.RegionQuickValidation: c.TTL.QuickValidation,
	}
	ttls := make(map[cachehelper.Region]time.Duration, len(configured))
	for region, ttl := range configured {
		if ttl != nil {
			ttls[region] = *ttl
		}
	}

	return cachehelper.Config{
		KeyPrefix:  strings.TrimSpace(c.KeyPrefix),
		KeyVersion: strings.TrimSpace(c.KeyVersion),
		TTLs:       ttls,
	}
}

// ConnectionConfig converts the database section into the database package representation.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),

		MaxOpenConns:    c.Pool.MaxOpenConns,
		MaxIdleConns:    c.Pool.MaxIdleConns,
		ConnMaxLifetime: c.Pool.ConnMaxLifetime,
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(c.Postgres.Host)
		dbCfg.Port = c.Postgres.Port
		dbCfg.Name = strings.TrimSpace(c.Postgres.Database)
		dbCfg.User = strings.TrimSpace(c.Postgres.Username)
		dbCfg.Password = c.Postgres.Password
		dbCfg.Options = c.Postgres.Options
	case "mysql":
		dbCfg.Host = strings.TrimSpace(c.MySQL.Host)
		dbCfg.Port = c.MySQL.Port
		dbCfg.Name = strings.TrimSpace(c.MySQL.Database)
		dbCfg.User = strings.TrimSpace(c.MySQL.Username)
		dbCfg.Password = c.MySQL.Password
		dbCfg.Options = c.MySQL.Options
	}

	return dbCfg
}
