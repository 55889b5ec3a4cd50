package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insurai/portal/internal/models"
)

func TestAutoMigrateCreatesPortalTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	tables := []interface{}{
		&models.PortalSession{},
		&models.ReportRecord{},
		&models.CacheEntry{},
		&models.PortalSetting{},
	}
	for _, table := range tables {
		require.True(t, migrator.HasTable(table), "expected table for %T to exist", table)
	}

	require.True(t, migrator.HasColumn(&models.PortalSession{}, "sealed_token"))
	require.True(t, migrator.HasIndex(&models.ReportRecord{}, "idx_report_owner"))
}

func TestAutoMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))
	require.NoError(t, AutoMigrate(db))
}

func TestAutoMigrateRequiresHandle(t *testing.T) {
	require.Error(t, AutoMigrate(nil))
}
