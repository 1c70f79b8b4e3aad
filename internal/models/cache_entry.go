package models

import (
	"time"
)

// CacheEntry represents a cached value stored in the database-backed entry store.
// A nil ExpiresAt marks an entry that never expires.
type CacheEntry struct {
	Key       string     `gorm:"column:cache_key;primaryKey;size:250"`
	Value     []byte     `gorm:"column:value"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name so every driver shares the same schema.
func (CacheEntry) TableName() string {
	return "cache_entries"
}
