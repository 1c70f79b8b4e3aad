package models

import "time"

// CacheKeyRef records that a cache key belongs to an invalidation group, such as every key
// derived from one user's data.
type CacheKeyRef struct {
	Group     string     `gorm:"column:group_name;primaryKey;size:128"`
	Key       string     `gorm:"column:cache_key;primaryKey;size:250"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	TrackedAt time.Time  `gorm:"column:tracked_at;index"`
	CreatedAt time.Time
}

// TableName pins the table name so every driver shares the same schema.
func (CacheKeyRef) TableName() string {
	return "cache_key_refs"
}
