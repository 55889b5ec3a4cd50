package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is the shared key/value cache used for login throttling, session
// lookups and short-lived backend directory snapshots.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// SetJSON stores value encoded as JSON.
func SetJSON(ctx context.Context, store Store, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return store.Set(ctx, key, payload, ttl)
}

// GetJSON loads a JSON value into out. found is false on a miss.
func GetJSON(ctx context.Context, store Store, key string, out any) (bool, error) {
	data, found, err := store.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return true, nil
}
