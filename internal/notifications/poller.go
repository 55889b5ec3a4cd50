package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/insurai/portal/internal/backend"
	apperrors "github.com/insurai/portal/pkg/errors"
	"github.com/insurai/portal/pkg/logger"
)

// DefaultPollInterval matches the dashboard's refresh cadence.
const DefaultPollInterval = 30 * time.Second

// PollerOption customises a Poller.
type PollerOption func(*Poller)

// WithPollInterval overrides the refresh cadence.
func WithPollInterval(interval time.Duration) PollerOption {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithRequestTimeout bounds each scheduled refresh.
func WithRequestTimeout(timeout time.Duration) PollerOption {
	return func(p *Poller) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

type subscription struct {
	entry cron.EntryID
	token string
	refs  int
}

// Poller refreshes subscribed recipients on a fixed schedule. Each
// subscription is a handle: releasing the last one removes the schedule.
type Poller struct {
	manager  *Manager
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	subs    map[string]*subscription
	started bool
}

// NewPoller constructs a Poller driving the manager.
func NewPoller(manager *Manager, opts ...PollerOption) *Poller {
	p := &Poller{
		manager:  manager,
		interval: DefaultPollInterval,
		timeout:  10 * time.Second,
		log:      logger.WithModule("notifications.poller"),
		cron:     cron.New(cron.WithLogger(cron.DiscardLogger)),
		subs:     make(map[string]*subscription),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins running scheduled refreshes.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.cron.Start()
	p.started = true
}

// Stop halts the scheduler and waits for in-flight refreshes.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	stopCtx := p.cron.Stop()
	p.mu.Unlock()

	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe schedules refreshes for the recipient using the backend token and
// returns a cancel func. Repeat subscriptions share one schedule and refresh
// the token it uses.
func (p *Poller) Subscribe(r Recipient, backendToken string) (func(), error) {
	key := r.Key()

	p.mu.Lock()
	defer p.mu.Unlock()

	if sub, ok := p.subs[key]; ok {
		sub.refs++
		sub.token = backendToken
		return p.releaser(key), nil
	}

	sub := &subscription{token: backendToken, refs: 1}
	entry, err := p.cron.AddFunc(fmt.Sprintf("@every %s", p.interval), func() {
		p.poll(r)
	})
	if err != nil {
		return nil, fmt.Errorf("notifications: schedule poll: %w", err)
	}
	sub.entry = entry
	p.subs[key] = sub
	return p.releaser(key), nil
}

// Remove drops the recipient's schedule regardless of outstanding handles.
func (p *Poller) Remove(r Recipient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(r.Key())
}

// Subscribed reports whether the recipient has an active schedule.
func (p *Poller) Subscribed(r Recipient) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.subs[r.Key()]
	return ok
}

func (p *Poller) releaser(key string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			sub, ok := p.subs[key]
			if !ok {
				return
			}
			sub.refs--
			if sub.refs <= 0 {
				p.removeLocked(key)
			}
		})
	}
}

func (p *Poller) removeLocked(key string) {
	if sub, ok := p.subs[key]; ok {
		p.cron.Remove(sub.entry)
		delete(p.subs, key)
	}
}

func (p *Poller) poll(r Recipient) {
	p.mu.Lock()
	sub, ok := p.subs[r.Key()]
	var token string
	if ok {
		token = sub.token
	}
	p.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(backend.WithToken(context.Background(), token), p.timeout)
	defer cancel()

	if _, err := p.manager.Refresh(ctx, r); err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			p.log.Info("stopping notification poll after backend rejected token", zap.String("recipient", r.Key()))
			p.Remove(r)
			return
		}
		p.log.Warn("notification poll failed", zap.String("recipient", r.Key()), zap.Error(err))
	}
}
