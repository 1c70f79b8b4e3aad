package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/axoncache/internal/models"
)

// DatabaseStore implements Store and KeyIndex using the primary SQL database.
// Expiry timestamps are persisted in UTC with millisecond precision so that every supported
// driver compares them the same way.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db}
}

var errDatabaseStoreNotInitialised = errors.New("cache: database store not initialised")

// Put upserts the entry for its key.
func (s *DatabaseStore) Put(ctx context.Context, entry Entry) error {
	if s == nil {
		return errDatabaseStoreNotInitialised
	}
	if err := validateKey(entry.Key); err != nil {
		return err
	}

	row := toRow(entry)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cache_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&row).Error
	return unavailable("put", err)
}

// InsertIfAbsent removes an expired row for the key, if any, and then performs a conditional
// insert inside the same transaction. Concurrent callers race on the primary key, so exactly
// one of them observes an affected row.
func (s *DatabaseStore) InsertIfAbsent(ctx context.Context, entry Entry, now time.Time) error {
	if s == nil {
		return errDatabaseStoreNotInitialised
	}
	if err := validateKey(entry.Key); err != nil {
		return err
	}

	row := toRow(entry)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("cache_key = ? AND expires_at IS NOT NULL AND expires_at <= ?", entry.Key, dbTime(now)).
			Delete(&models.CacheEntry{}).Error; err != nil {
			return err
		}

		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cache_key"}},
			DoNothing: true,
		}).Create(&row)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyExists
		}
		return nil
	})
	if errors.Is(err, ErrAlreadyExists) {
		return ErrAlreadyExists
	}
	return unavailable("insert", err)
}

// Get retrieves the raw entry by key.
func (s *DatabaseStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if s == nil {
		return Entry{}, false, errDatabaseStoreNotInitialised
	}

	var row models.CacheEntry
	err := s.db.WithContext(ctx).Take(&row, "cache_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, unavailable("get", err)
	}

	return fromRow(row), true, nil
}

// Delete removes keys from the store.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errDatabaseStoreNotInitialised
	}
	if len(keys) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Where("cache_key IN ?", keys).Delete(&models.CacheEntry{}).Error
	return unavailable("delete", err)
}

// DeleteAll removes every cache entry.
func (s *DatabaseStore) DeleteAll(ctx context.Context) error {
	if s == nil {
		return errDatabaseStoreNotInitialised
	}

	err := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.CacheEntry{}).Error
	return unavailable("delete all", err)
}

// DeleteExpired removes rows whose expiry has passed.
func (s *DatabaseStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if s == nil {
		return 0, errDatabaseStoreNotInitialised
	}

	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", dbTime(now)).
		Delete(&models.CacheEntry{})
	if result.Error != nil {
		return 0, unavailable("delete expired", result.Error)
	}
	return result.RowsAffected, nil
}

// Stats counts total and expired rows.
func (s *DatabaseStore) Stats(ctx context.Context, now time.Time) (Stats, error) {
	if s == nil {
		return Stats{}, errDatabaseStoreNotInitialised
	}

	var stats Stats
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.CacheEntry{}).Count(&stats.Total).Error; err != nil {
		return Stats{}, unavailable("stats", err)
	}
	if err := db.Model(&models.CacheEntry{}).
		Where("expires_at IS NOT NULL AND expires_at <= ?", dbTime(now)).
		Count(&stats.Expired).Error; err != nil {
		return Stats{}, unavailable("stats", err)
	}
	stats.Active = stats.Total - stats.Expired
	return stats, nil
}

// Ping checks the database connection.
func (s *DatabaseStore) Ping(ctx context.Context) error {
	if s == nil {
		return errDatabaseStoreNotInitialised
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable("ping", err)
	}
	return unavailable("ping", sqlDB.PingContext(ctx))
}

// Track records key as a member of group.
func (s *DatabaseStore) Track(ctx context.Context, group, key string, trackedAt time.Time, expiresAt *time.Time) error {
	if s == nil {
		return errDatabaseStoreNotInitialised
	}

	ref := models.CacheKeyRef{
		Group:     group,
		Key:       key,
		ExpiresAt: dbTimePtr(expiresAt),
		TrackedAt: dbTime(trackedAt),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_name"}, {Name: "cache_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"expires_at", "tracked_at"}),
		}).Create(&ref).Error
	return unavailable("track", err)
}

// Members lists the keys tracked for group.
func (s *DatabaseStore) Members(ctx context.Context, group string) ([]string, error) {
	if s == nil {
		return nil, errDatabaseStoreNotInitialised
	}

	var keys []string
	err := s.db.WithContext(ctx).
		Model(&models.CacheKeyRef{}).
		Where("group_name = ?", group).
		Pluck("cache_key", &keys).Error
	if err != nil {
		return nil, unavailable("members", err)
	}
	return keys, nil
}

// PruneOrphans removes references to expired or vanished entries.
func (s *DatabaseStore) PruneOrphans(ctx context.Context, now time.Time) (int64, error) {
	if s == nil {
		return 0, errDatabaseStoreNotInitialised
	}

	live := s.db.Model(&models.CacheEntry{}).Select("cache_key")
	result := s.db.WithContext(ctx).
		Where("(expires_at IS NOT NULL AND expires_at <= ?) OR (tracked_at <= ? AND cache_key NOT IN (?))",
			dbTime(now), dbTime(now.Add(-OrphanGracePeriod)), live).
		Delete(&models.CacheKeyRef{})
	if result.Error != nil {
		return 0, unavailable("prune index", result.Error)
	}
	return result.RowsAffected, nil
}

func toRow(entry Entry) models.CacheEntry {
	return models.CacheEntry{
		Key:       entry.Key,
		Value:     entry.Value,
		ExpiresAt: dbTimePtr(entry.ExpiresAt),
	}
}

func fromRow(row models.CacheEntry) Entry {
	entry := Entry{Key: row.Key, Value: row.Value}
	if row.ExpiresAt != nil {
		expires := row.ExpiresAt.UTC()
		entry.ExpiresAt = &expires
	}
	return entry
}

func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func dbTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := dbTime(*t)
	return &v
}
