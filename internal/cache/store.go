package cache

import (
	"context"
	"time"
)

// MaxKeyLength is the longest key every Store implementation accepts.
const MaxKeyLength = 250

// Entry is the raw unit persisted by a Store. A nil ExpiresAt marks an entry that never expires.
type Entry struct {
	Key       string
	Value     []byte
	ExpiresAt *time.Time
}

// Expired reports whether the entry is logically dead at the supplied instant.
func (e Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// Stats summarises the physical content of a Store.
type Stats struct {
	Total   int64 `json:"total_items"`
	Active  int64 `json:"active_items"`
	Expired int64 `json:"expired_items"`
}

// Store represents the persistent key/value collection behind the cache backend.
// Implementations only surface transport or storage failures, wrapped with ErrStoreUnavailable.
// Lookups of absent keys are never errors.
type Store interface {
	// Put replaces any existing entry for the key unconditionally.
	Put(ctx context.Context, entry Entry) error
	// InsertIfAbsent stores the entry unless a live entry already occupies the key, in which
	// case ErrAlreadyExists is returned. Entries expired at now are overwritten.
	InsertIfAbsent(ctx context.Context, entry Entry, now time.Time) error
	// Get returns the stored entry without applying any freshness check.
	Get(ctx context.Context, key string) (Entry, bool, error)
	Delete(ctx context.Context, keys ...string) error
	DeleteAll(ctx context.Context) error
	// DeleteExpired physically removes every entry expired at now and reports how many went.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Stats(ctx context.Context, now time.Time) (Stats, error)
	Ping(ctx context.Context) error
}

// OrphanGracePeriod is how long a reference may point at a missing entry before PruneOrphans
// drops it. A reference is tracked before its entry is written.
const OrphanGracePeriod = time.Minute

// KeyIndex tracks which cache keys belong to an invalidation group so that the whole group
// can be dropped at once.
type KeyIndex interface {
	// Track records key as a member of group at trackedAt. Tracking an existing member
	// refreshes both times.
	Track(ctx context.Context, group, key string, trackedAt time.Time, expiresAt *time.Time) error
	Members(ctx context.Context, group string) ([]string, error)
	// PruneOrphans drops references expired at now, and references whose entry is missing
	// once they are older than OrphanGracePeriod.
	PruneOrphans(ctx context.Context, now time.Time) (int64, error)
}

// IndexedStore is implemented by every built-in store: entries and the key index share one
// backing service.
type IndexedStore interface {
	Store
	KeyIndex
}

func expiryFor(now time.Time, ttl time.Duration) *time.Time {
	if ttl < 0 {
		return nil
	}
	expires := now.Add(ttl).UTC()
	return &expires
}
