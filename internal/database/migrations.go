package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/insurai/portal/internal/models"
)

// AutoMigrate creates or updates the tables the portal owns. Domain data lives
// in the backend and is never stored here.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	return db.AutoMigrate(
		&models.PortalSession{},
		&models.ReportRecord{},
		&models.CacheEntry{},
		&models.PortalSetting{},
	)
}
