package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/axoncache/internal/cache"
	"github.com/charlesng35/axoncache/pkg/logger"
	"github.com/charlesng35/axoncache/pkg/metrics"
)

const (
	defaultSweepSpec = "@every 1m"

	jobExpiredEntries = "expired_entries"
	jobIndexOrphans   = "index_orphans"
)

// Cleaner sweeps the entry store in the background: it deletes entries whose expiry has
// passed and drops key index references that no longer point at a live entry. Lazy deletion
// on read keeps working without it; the sweep bounds storage growth for keys nobody reads.
type Cleaner struct {
	store    cache.Store
	index    cache.KeyIndex
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	schedule string

	mu        sync.Mutex
	lastSweep time.Time
	lastErr   error
}

// SweepStats reports how much a sweep removed.
type SweepStats struct {
	ExpiredEntries int64 `json:"expired_entries"`
	OrphanedRefs   int64 `json:"orphaned_refs"`
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification of the sweep.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithLogger overrides the cleaner logger.
func WithLogger(log *zap.Logger) Option {
	return func(cleaner *Cleaner) {
		if log != nil {
			cleaner.log = log
		}
	}
}

// NewCleaner constructs a Cleaner. A nil index skips orphan pruning.
func NewCleaner(store cache.Store, index cache.KeyIndex, opts ...Option) (*Cleaner, error) {
	if store == nil {
		return nil, errors.New("maintenance: store is required")
	}

	cleaner := &Cleaner{
		store:    store,
		index:    index,
		now:      time.Now,
		schedule: defaultSweepSpec,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(
			cron.WithLogger(cron.DiscardLogger),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		)
	}

	return cleaner, nil
}

// Start registers the sweep with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if _, err := c.cron.AddFunc(c.schedule, func() {
		if _, err := c.Sweep(context.Background()); err != nil {
			c.log.Warn("cache sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()
	c.log.Info("cache sweeper started", zap.String("schedule", c.schedule))
	return nil
}

// Stop halts the underlying scheduler; the returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes a single sweep. Used during graceful shutdown and by tests.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	_, err := c.Sweep(ctx)
	return err
}

// Sweep runs every job even if an earlier one fails and aggregates their errors.
func (c *Cleaner) Sweep(ctx context.Context) (SweepStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		stats SweepStats
		errs  error
	)
	now := c.now()

	removed, err := c.runJob(jobExpiredEntries, func() (int64, error) {
		return c.store.DeleteExpired(ctx, now)
	})
	stats.ExpiredEntries = removed
	errs = multierr.Append(errs, err)

	if c.index != nil {
		removed, err = c.runJob(jobIndexOrphans, func() (int64, error) {
			return c.index.PruneOrphans(ctx, now)
		})
		stats.OrphanedRefs = removed
		errs = multierr.Append(errs, err)
	}

	c.mu.Lock()
	c.lastSweep, c.lastErr = now, errs
	c.mu.Unlock()

	if stats.ExpiredEntries > 0 || stats.OrphanedRefs > 0 {
		c.log.Debug("cache sweep completed",
			zap.Int64("expired_entries", stats.ExpiredEntries),
			zap.Int64("orphaned_refs", stats.OrphanedRefs),
		)
	}
	return stats, errs
}

// LastSweep reports when the last sweep started and how it ended. The time is zero before the
// first sweep.
func (c *Cleaner) LastSweep() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSweep, c.lastErr
}

func (c *Cleaner) runJob(job string, fn func() (int64, error)) (int64, error) {
	started := time.Now()
	removed, err := fn()
	metrics.RecordMaintenanceRun(job, removed, err, time.Since(started))
	if err != nil {
		return removed, fmt.Errorf("%s: %w", job, err)
	}
	return removed, nil
}
