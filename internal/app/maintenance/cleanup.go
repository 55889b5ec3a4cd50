package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/insurai/portal/pkg/logger"
)

const defaultSchedule = "@every 15m"

// SessionPurger removes expired and revoked portal sessions.
type SessionPurger interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// CachePurger drops expired cache rows.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// HistoryTrimmer enforces the per-user report history limit.
type HistoryTrimmer interface {
	TrimHistory(ctx context.Context) (int64, error)
}

// Stats counts the rows removed by a cleanup run.
type Stats struct {
	Sessions     int64
	CacheEntries int64
	Reports      int64
}

// Cleaner coordinates background maintenance tasks such as purging expired
// sessions, expired cache rows and surplus report history.
type Cleaner struct {
	sessions SessionPurger
	cache    CachePurger
	reports  HistoryTrimmer
	cron     *cron.Cron
	timeout  time.Duration
	log      *zap.Logger
	schedule string
	now      func() time.Time

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithSchedule overrides the cron specification for the cleanup job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithCache enables purging of expired cache rows.
func WithCache(store CachePurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = store
	}
}

// WithReports enables report history trimming.
func WithReports(trimmer HistoryTrimmer) Option {
	return func(cleaner *Cleaner) {
		cleaner.reports = trimmer
	}
}

// NewCleaner constructs a Cleaner. Any nil dependency results in the
// corresponding cleanup step being skipped.
func NewCleaner(sessions SessionPurger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions: sessions,
		schedule: defaultSchedule,
		timeout:  time.Minute,
		log:      logger.WithModule("maintenance"),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

func (c *Cleaner) enabled() bool {
	return c.sessions != nil || c.cache != nil || c.reports != nil
}

// Start registers the cleanup job and launches the scheduler if at least one
// step is configured.
func (c *Cleaner) Start() error {
	if !c.enabled() {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		stats, err := c.Run(ctx)
		if err != nil {
			c.log.Warn("maintenance run failed", zap.Error(err))
		}
		c.log.Debug("maintenance run complete",
			zap.Int64("sessions", stats.Sessions),
			zap.Int64("cache_entries", stats.CacheEntries),
			zap.Int64("reports", stats.Reports),
		)
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured cleanup step. A failing step does not
// prevent the others from running.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	_, err := c.Run(ctx)
	return err
}

// Run is RunOnce with the per-step row counts.
func (c *Cleaner) Run(ctx context.Context) (Stats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		stats Stats
		errs  error
	)

	if c.sessions != nil {
		n, err := c.sessions.CleanupExpired(ctx)
		errs = multierr.Append(errs, err)
		stats.Sessions = n
	}

	if c.cache != nil {
		n, err := c.cache.PurgeExpired(ctx)
		errs = multierr.Append(errs, err)
		stats.CacheEntries = n
	}

	if c.reports != nil {
		n, err := c.reports.TrimHistory(ctx)
		errs = multierr.Append(errs, err)
		stats.Reports = n
	}

	c.mu.Lock()
	c.lastRun = c.now()
	c.lastErr = errs
	c.mu.Unlock()

	return stats, errs
}

// LastRun reports when the cleanup last ran and how it ended. The time is
// zero before the first run.
func (c *Cleaner) LastRun() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun, c.lastErr
}
