package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/axoncache/internal/models"
)

// AutoMigrate creates or updates the cache tables.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	return db.AutoMigrate(
		&models.CacheEntry{},
		&models.CacheKeyRef{},
	)
}
