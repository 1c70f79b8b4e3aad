package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/axoncache/internal/app/maintenance"
	"github.com/charlesng35/axoncache/internal/cache"
	"github.com/charlesng35/axoncache/internal/cachehelper"
	"github.com/charlesng35/axoncache/internal/database"
	"github.com/charlesng35/axoncache/internal/invalidation"
)

// Runtime bundles the cache layer built from configuration. It is shared by the server and
// the cachectl command.
type Runtime struct {
	// StoreName is the store actually in use, which differs from the configured one after a
	// Redis fallback.
	StoreName string
	DB        *gorm.DB
	Store     cache.IndexedStore
	Backend   *cache.Backend
	Helper    *cachehelper.Helper
	Triggers  *invalidation.Triggers
	// Cleaner is built but not started; the server schedules it, cachectl runs it once.
	Cleaner *maintenance.Cleaner

	closers []func() error
}

// NewRuntime opens the configured entry store and assembles the backend, helper, triggers and
// sweeper.
func NewRuntime(ctx context.Context, cfg *Config, log *zap.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("runtime: config is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	rt := &Runtime{}
	success := false
	defer func() {
		if !success {
			_ = rt.Close()
		}
	}()

	if err := rt.openStore(ctx, cfg, log); err != nil {
		return nil, err
	}

	backend, err := cache.NewBackend(rt.Store)
	if err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}
	rt.Backend = backend

	rt.Helper, err = cachehelper.New(backend, rt.Store, cfg.Cache.HelperConfig())
	if err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}

	rt.Triggers, err = invalidation.New(rt.Helper)
	if err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}

	rt.Cleaner, err = maintenance.NewCleaner(rt.Store, rt.Store,
		maintenance.WithSchedule(cfg.Cache.SweepSchedule),
		maintenance.WithLogger(log.Named("maintenance")),
	)
	if err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}

	log.Info("cache runtime ready", zap.String("store", rt.StoreName))
	success = true
	return rt, nil
}

func (rt *Runtime) openStore(ctx context.Context, cfg *Config, log *zap.Logger) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Cache.Store)) {
	case "memory":
		rt.StoreName = "memory"
		rt.Store = cache.NewMemoryStore()
		return nil
	case "redis":
		store, err := cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig())
		if err == nil {
			rt.StoreName = "redis"
			rt.Store = store
			rt.closers = append(rt.closers, store.Close)
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
			return nil
		}
		if !cfg.Cache.Redis.FallbackToDatabase {
			return fmt.Errorf("runtime: connect redis: %w", err)
		}
		log.Warn("redis unavailable; falling back to database store", zap.Error(err))
		return rt.openDatabaseStore(cfg)
	case "", "database":
		return rt.openDatabaseStore(cfg)
	default:
		return fmt.Errorf("runtime: unsupported cache store %q", cfg.Cache.Store)
	}
}

func (rt *Runtime) openDatabaseStore(cfg *Config) error {
	db, err := database.Open(cfg.Database.ConnectionConfig())
	if err != nil {
		return fmt.Errorf("runtime: open database: %w", err)
	}
	rt.DB = db
	rt.closers = append(rt.closers, func() error { return database.Close(db) })

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("runtime: migrate database: %w", err)
	}

	rt.StoreName = "database"
	rt.Store = cache.NewDatabaseStore(db)
	return nil
}

// Close releases store connections in reverse order of acquisition.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	var err error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, rt.closers[i]())
	}
	rt.closers = nil
	return err
}
