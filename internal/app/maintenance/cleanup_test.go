package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	iauth "github.com/insurai/portal/internal/auth"
	"github.com/insurai/portal/internal/cache"
	testutil "github.com/insurai/portal/internal/database/testutil"
	"github.com/insurai/portal/internal/models"
	"github.com/insurai/portal/pkg/crypto"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

type stubTrimmer struct {
	removed int64
	err     error
	calls   int
}

func (s *stubTrimmer) TrimHistory(context.Context) (int64, error) {
	s.calls++
	return s.removed, s.err
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := &fixedClock{current: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)}

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "cleanup-secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
		Clock:          clock.Now,
	})
	require.NoError(t, err)
	sealer, err := crypto.NewSealer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, sealer, iauth.SessionConfig{Clock: clock.Now})
	require.NoError(t, err)

	identity := iauth.Identity{Role: models.RoleEmployee, UserID: 3, BackendToken: "bearer"}
	ctx := context.Background()

	expired, err := sessionSvc.Create(ctx, identity, iauth.SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.PortalSession{}).Where("id = ?", expired.Principal.SessionID).
		Update("expires_at", clock.Now().Add(-2*time.Hour)).Error)

	active, err := sessionSvc.Create(ctx, identity, iauth.SessionMetadata{})
	require.NoError(t, err)

	revoked, err := sessionSvc.Create(ctx, identity, iauth.SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, sessionSvc.Destroy(ctx, revoked.Principal.SessionID))

	store := cache.NewDatabaseStore(db).WithClock(clock.Now)
	require.NoError(t, store.Set(ctx, "stale", []byte("x"), time.Minute))
	clock.current = clock.current.Add(5 * time.Minute)
	require.NoError(t, store.Set(ctx, "fresh", []byte("y"), time.Hour))

	trimmer := &stubTrimmer{removed: 2}
	c := NewCleaner(sessionSvc,
		WithCache(store),
		WithReports(trimmer),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)

	stats, err := c.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Sessions)
	require.Equal(t, int64(1), stats.CacheEntries)
	require.Equal(t, int64(2), stats.Reports)
	require.Equal(t, 1, trimmer.calls)

	var remaining []models.PortalSession
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, active.Principal.SessionID, remaining[0].ID)

	_, ok, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCleanerRunOnceCollectsErrors(t *testing.T) {
	first := &stubTrimmer{err: errors.New("trim failed")}
	c := NewCleaner(nil, WithReports(first), WithCache(failingCache{}))

	err := c.RunOnce(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "trim failed")
	require.Contains(t, err.Error(), "purge failed")
	require.Equal(t, 1, first.calls, "cache failure must not skip report trimming")

	ranAt, lastErr := c.LastRun()
	require.False(t, ranAt.IsZero())
	require.Error(t, lastErr)
}

func TestCleanerStartWithoutJobs(t *testing.T) {
	c := NewCleaner(nil)
	require.NoError(t, c.Start())
	<-c.Stop().Done()
}

func TestCleanerRejectsBadSchedule(t *testing.T) {
	c := NewCleaner(nil, WithReports(&stubTrimmer{}), WithSchedule("not a schedule"))
	require.Error(t, c.Start())
}

type failingCache struct{}

func (failingCache) PurgeExpired(context.Context) (int64, error) {
	return 0, errors.New("purge failed")
}
