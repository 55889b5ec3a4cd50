package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/insurai/portal/internal/models"
)

// Settings persisted so secrets generated on first start survive restarts.
const (
	JWTSecretSetting  = "auth.jwt_secret"
	SealingKeySetting = "auth.session_sealing_key"
)

// getSetting retrieves a setting by key. Returns an empty string when not found.
func getSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("settings: db is nil")
	}

	var setting models.PortalSetting
	err := db.WithContext(ctx).Take(&setting, "key = ?", key).Error
	if err == nil {
		return setting.Value, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || strings.Contains(err.Error(), "no such table") {
		return "", nil
	}
	return "", fmt.Errorf("settings: get %q: %w", key, err)
}

// upsertSetting stores or updates a setting value.
func upsertSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	if db == nil {
		return fmt.Errorf("settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("settings: key is required")
	}

	record := models.PortalSetting{Key: key, Value: value}
	if err := db.WithContext(ctx).
		Where("key = ?", key).
		Assign(map[string]any{"value": value}).
		FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("settings: upsert %q: %w", key, err)
	}
	return nil
}

// ResolveSetting returns the stored value for key. When none exists and
// candidate is non-empty, candidate is stored and returned, so a value generated
// on first start is reused afterwards.
func ResolveSetting(ctx context.Context, db *gorm.DB, key, candidate string) (string, error) {
	current, err := getSetting(ctx, db, key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(current) != "" {
		return current, nil
	}
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", fmt.Errorf("settings: no value for %q", key)
	}
	if err := upsertSetting(ctx, db, key, candidate); err != nil {
		return "", err
	}
	return candidate, nil
}
