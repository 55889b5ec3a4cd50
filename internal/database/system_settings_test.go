package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSettingMissingTable(t *testing.T) {
	db := openTestDB(t)

	value, err := getSetting(context.Background(), db, JWTSecretSetting)
	require.NoError(t, err)
	require.Empty(t, value)
}

func TestUpsertSetting(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))
	ctx := context.Background()

	require.NoError(t, upsertSetting(ctx, db, "reports.footer", "v1"))
	require.NoError(t, upsertSetting(ctx, db, "reports.footer", "v2"))

	value, err := getSetting(ctx, db, "reports.footer")
	require.NoError(t, err)
	require.Equal(t, "v2", value)

	require.Error(t, upsertSetting(ctx, db, "  ", "x"))
}

func TestResolveSettingKeepsFirstValue(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))
	ctx := context.Background()

	first, err := ResolveSetting(ctx, db, JWTSecretSetting, "generated-1")
	require.NoError(t, err)
	require.Equal(t, "generated-1", first)

	second, err := ResolveSetting(ctx, db, JWTSecretSetting, "generated-2")
	require.NoError(t, err)
	require.Equal(t, "generated-1", second)

	_, err = ResolveSetting(ctx, db, "missing", "")
	require.Error(t, err)
}
