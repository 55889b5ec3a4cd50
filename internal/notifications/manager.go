package notifications

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/insurai/portal/internal/models"
	"github.com/insurai/portal/pkg/logger"
	"github.com/insurai/portal/pkg/metrics"
)

// Backend is the slice of the backend client the manager depends on.
type Backend interface {
	ListNotifications(ctx context.Context, userID int64) ([]models.Notification, error)
	ListUnreadNotifications(ctx context.Context, userID int64) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID int64) error
}

// Publisher pushes refreshed notification state to connected clients.
type Publisher interface {
	Publish(recipientKey string, event Event)
}

// Recipient addresses one user's notification set. Ids are only unique per role.
type Recipient struct {
	Role   models.Role
	UserID int64
}

// Key identifies the recipient in local state and on the push channel.
func (r Recipient) Key() string {
	return r.Role.String() + ":" + strconv.FormatInt(r.UserID, 10)
}

// RecipientOf returns the recipient for an authenticated principal.
func RecipientOf(p models.Principal) Recipient {
	return Recipient{Role: p.Role, UserID: p.UserID}
}

// Filter selects which notifications List returns.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterUnread Filter = "unread"
	FilterRead   Filter = "read"
)

// ParseFilter accepts all, unread or read. Empty means all.
func ParseFilter(value string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(value))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterUnread:
		return FilterUnread, nil
	case FilterRead:
		return FilterRead, nil
	default:
		return "", fmt.Errorf("unknown notification filter %q", value)
	}
}

// Result is the outcome of marking one notification as read.
type Result struct {
	ID      int64  `json:"id"`
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

type recipientSet struct {
	items     []models.Notification
	fetchedAt time.Time
}

// Manager tracks each recipient's notification set and its read state. The
// backend is authoritative: local state changes only after it acknowledges.
type Manager struct {
	backend     Backend
	publisher   Publisher
	concurrency int
	now         func() time.Time
	log         *zap.Logger

	mu   sync.RWMutex
	sets map[string]*recipientSet
}

// Option customises a Manager.
type Option func(*Manager)

// WithPublisher attaches the push channel.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) {
		m.publisher = p
	}
}

// WithConcurrency bounds parallel backend calls during bulk mark-as-read.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// NewManager constructs a Manager.
func NewManager(backend Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:     backend,
		concurrency: 4,
		now:         time.Now,
		log:         logger.WithModule("notifications"),
		sets:        make(map[string]*recipientSet),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Refresh refetches the recipient's full set and replaces local state with it.
// A notification marked read locally can reappear unread if the backend has
// not caught up yet; the next refresh reconciles it.
func (m *Manager) Refresh(ctx context.Context, r Recipient) ([]models.Notification, error) {
	items, err := m.backend.ListNotifications(ctx, r.UserID)
	if err != nil {
		metrics.NotificationPolls.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.NotificationPolls.WithLabelValues("success").Inc()

	sorted := make([]models.Notification, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	m.mu.Lock()
	m.sets[r.Key()] = &recipientSet{items: sorted, fetchedAt: m.now()}
	m.mu.Unlock()

	m.publish(r, "refreshed")
	return filter(sorted, FilterAll), nil
}

// List returns the recipient's notifications matching f, fetching them first
// when nothing is held locally.
func (m *Manager) List(ctx context.Context, r Recipient, f Filter) ([]models.Notification, error) {
	m.mu.RLock()
	set, ok := m.sets[r.Key()]
	var items []models.Notification
	if ok {
		items = filter(set.items, f)
	}
	m.mu.RUnlock()
	if ok {
		return items, nil
	}

	all, err := m.Refresh(ctx, r)
	if err != nil {
		return nil, err
	}
	return filter(all, f), nil
}

// UnreadCount reports how many locally held notifications are unread.
func (m *Manager) UnreadCount(r Recipient) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.sets[r.Key()]
	if !ok {
		return 0
	}
	return countUnread(set.items)
}

// CountUnread is UnreadCount for callers that may run before the first
// refresh. Without a local set it asks the backend's unread endpoint and
// leaves local state alone, since the unread list is not the full set.
func (m *Manager) CountUnread(ctx context.Context, r Recipient) (int, error) {
	m.mu.RLock()
	set, ok := m.sets[r.Key()]
	var count int
	if ok {
		count = countUnread(set.items)
	}
	m.mu.RUnlock()
	if ok {
		return count, nil
	}

	unread, err := m.backend.ListUnreadNotifications(ctx, r.UserID)
	if err != nil {
		return 0, err
	}
	return countUnread(unread), nil
}

// MarkAsRead acknowledges one notification. Already-read notifications are a
// no-op. On backend failure the local state is left untouched.
func (m *Manager) MarkAsRead(ctx context.Context, r Recipient, id int64) error {
	if m.isRead(r, id) {
		return nil
	}
	if err := m.backend.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	m.applyRead(r, []int64{id})
	m.publish(r, "read")
	return nil
}

// MarkMultipleAsRead acknowledges each id independently and reports every
// outcome. Local state is updated for each success even when others fail; the
// returned error combines the failures.
func (m *Manager) MarkMultipleAsRead(ctx context.Context, r Recipient, ids []int64) ([]Result, error) {
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	results := make([]Result, len(unique))
	errs := make([]error, len(unique))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, id := range unique {
		results[i].ID = id
		if m.isRead(r, id) {
			results[i].Success = true
			results[i].Skipped = true
			continue
		}
		i, id := i, id
		g.Go(func() error {
			if err := m.backend.MarkNotificationRead(ctx, id); err != nil {
				errs[i] = fmt.Errorf("notification %d: %w", id, err)
				results[i].Error = err.Error()
				return nil
			}
			results[i].Success = true
			return nil
		})
	}
	_ = g.Wait()

	acked := make([]int64, 0, len(unique))
	for i, res := range results {
		if res.Success && !res.Skipped {
			acked = append(acked, unique[i])
		}
	}
	if len(acked) > 0 {
		m.applyRead(r, acked)
		m.publish(r, "read")
	}

	err := multierr.Combine(errs...)
	if err != nil {
		m.log.Warn("bulk mark-as-read partially failed",
			zap.String("recipient", r.Key()),
			zap.Int("requested", len(unique)),
			zap.Int("failed", len(multierr.Errors(err))),
		)
	}
	return results, err
}

// Forget drops the recipient's local state, for example on logout.
func (m *Manager) Forget(r Recipient) {
	m.mu.Lock()
	delete(m.sets, r.Key())
	m.mu.Unlock()
}

func (m *Manager) isRead(r Recipient, id int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.sets[r.Key()]
	if !ok {
		return false
	}
	for _, n := range set.items {
		if n.ID == id {
			return n.Read
		}
	}
	return false
}

func (m *Manager) applyRead(r Recipient, ids []int64) {
	marked := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		marked[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[r.Key()]
	if !ok {
		return
	}
	for i := range set.items {
		if _, hit := marked[set.items[i].ID]; hit {
			set.items[i].Read = true
		}
	}
}

func (m *Manager) publish(r Recipient, kind string) {
	if m.publisher == nil {
		return
	}

	m.mu.RLock()
	set, ok := m.sets[r.Key()]
	var items []models.Notification
	if ok {
		items = filter(set.items, FilterAll)
	}
	m.mu.RUnlock()
	if !ok {
		return
	}

	m.publisher.Publish(r.Key(), Event{
		Event:         kind,
		Notifications: items,
		UnreadCount:   countUnread(items),
	})
}

func filter(items []models.Notification, f Filter) []models.Notification {
	out := make([]models.Notification, 0, len(items))
	for _, n := range items {
		switch {
		case f == FilterUnread && n.Read:
			continue
		case f == FilterRead && !n.Read:
			continue
		}
		out = append(out, n)
	}
	return out
}

func countUnread(items []models.Notification) int {
	count := 0
	for _, n := range items {
		if !n.Read {
			count++
		}
	}
	return count
}
