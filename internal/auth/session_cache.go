package auth

import (
	"context"
	"errors"
	"time"

	"github.com/insurai/portal/internal/cache"
	"github.com/insurai/portal/internal/models"
)

const sessionCacheKeyPrefix = "auth:sessions:"

// SessionCache keeps resolved sessions close to the request path.
type SessionCache interface {
	Get(ctx context.Context, sessionID string) (*models.PortalSession, error)
	Set(ctx context.Context, session *models.PortalSession, ttl time.Duration) error
	Delete(ctx context.Context, sessionIDs ...string) error
}

var errSessionCacheMiss = errors.New("session cache miss")

// cachedSession carries the sealed token, which PortalSession hides from JSON.
type cachedSession struct {
	Session     models.PortalSession `json:"session"`
	SealedToken string               `json:"sealed_token"`
}

// NewStoreSessionCache wraps a cache.Store inside a SessionCache.
func NewStoreSessionCache(store cache.Store) SessionCache {
	if store == nil {
		return nil
	}
	return &storeSessionCache{store: store}
}

type storeSessionCache struct {
	store cache.Store
}

func (c *storeSessionCache) Get(ctx context.Context, sessionID string) (*models.PortalSession, error) {
	if sessionID == "" {
		return nil, errSessionCacheMiss
	}
	var entry cachedSession
	found, err := cache.GetJSON(ctx, c.store, sessionCacheKeyPrefix+sessionID, &entry)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errSessionCacheMiss
	}
	entry.Session.SealedToken = entry.SealedToken
	return &entry.Session, nil
}

func (c *storeSessionCache) Set(ctx context.Context, session *models.PortalSession, ttl time.Duration) error {
	if session == nil || session.ID == "" {
		return errors.New("session cache: session id missing")
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	entry := cachedSession{Session: *session, SealedToken: session.SealedToken}
	return cache.SetJSON(ctx, c.store, sessionCacheKeyPrefix+session.ID, entry, ttl)
}

func (c *storeSessionCache) Delete(ctx context.Context, sessionIDs ...string) error {
	keys := make([]string, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		if id != "" {
			keys = append(keys, sessionCacheKeyPrefix+id)
		}
	}
	return c.store.Delete(ctx, keys...)
}
