package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/insurai/portal/internal/models"
)

type fakeBackend struct {
	mu         sync.Mutex
	items      []models.Notification
	failIDs    map[int64]error
	listErr    error
	marked     []int64
	listHits   int
	unreadHits int
}

func (f *fakeBackend) ListNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listHits++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Notification, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeBackend) ListUnreadNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreadHits++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Notification
	for _, item := range f.items {
		if !item.Read {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeBackend) MarkNotificationRead(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failIDs[id]; err != nil {
		return err
	}
	f.marked = append(f.marked, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(key string, event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

var employee = Recipient{Role: models.RoleEmployee, UserID: 12}

func seededBackend() *fakeBackend {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return &fakeBackend{items: []models.Notification{
		{ID: 1, Title: "Claim approved", CreatedAt: base},
		{ID: 2, Title: "Policy renewal", CreatedAt: base.Add(time.Hour), Read: true},
		{ID: 3, Title: "Query answered", CreatedAt: base.Add(2 * time.Hour)},
	}}
}

func TestRecipientKey(t *testing.T) {
	require.Equal(t, "employee:12", employee.Key())
	require.NotEqual(t, employee.Key(), Recipient{Role: models.RoleHR, UserID: 12}.Key())
}

func TestParseFilter(t *testing.T) {
	for input, want := range map[string]Filter{"": FilterAll, "ALL": FilterAll, "unread": FilterUnread, " read ": FilterRead} {
		got, err := ParseFilter(input)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseFilter("archived")
	require.Error(t, err)
}

func TestListFetchesOnceAndFilters(t *testing.T) {
	fb := seededBackend()
	m := NewManager(fb)
	ctx := context.Background()

	all, err := m.List(ctx, employee, FilterAll)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, int64(3), all[0].ID, "newest first")

	unread, err := m.List(ctx, employee, FilterUnread)
	require.NoError(t, err)
	require.Len(t, unread, 2)

	read, err := m.List(ctx, employee, FilterRead)
	require.NoError(t, err)
	require.Len(t, read, 1)
	require.Equal(t, 1, fb.listHits)
	require.Equal(t, 2, m.UnreadCount(employee))
}

func TestCountUnreadUsesUnreadEndpointUntilLoaded(t *testing.T) {
	fb := seededBackend()
	m := NewManager(fb)
	ctx := context.Background()

	count, err := m.CountUnread(ctx, employee)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Equal(t, 1, fb.unreadHits)
	require.Equal(t, 0, fb.listHits)
	require.Equal(t, 0, m.UnreadCount(employee), "unread list must not seed local state")

	_, err = m.Refresh(ctx, employee)
	require.NoError(t, err)
	count, err = m.CountUnread(ctx, employee)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Equal(t, 1, fb.unreadHits)

	fb.listErr = errors.New("backend down")
	m.Forget(employee)
	_, err = m.CountUnread(ctx, employee)
	require.Error(t, err)
}

func TestRefreshFullyReplaces(t *testing.T) {
	fb := seededBackend()
	m := NewManager(fb)
	ctx := context.Background()

	_, err := m.Refresh(ctx, employee)
	require.NoError(t, err)

	fb.items = fb.items[:1]
	items, err := m.Refresh(ctx, employee)
	require.NoError(t, err)
	require.Len(t, items, 1)

	fb.listErr = errors.New("backend down")
	_, err = m.Refresh(ctx, employee)
	require.Error(t, err)

	kept, err := m.List(ctx, employee, FilterAll)
	require.NoError(t, err)
	require.Len(t, kept, 1, "failed refresh keeps the previous set")
}

func TestMarkAsReadIsIdempotent(t *testing.T) {
	fb := seededBackend()
	m := NewManager(fb)
	ctx := context.Background()
	_, err := m.Refresh(ctx, employee)
	require.NoError(t, err)

	require.NoError(t, m.MarkAsRead(ctx, employee, 1))
	require.NoError(t, m.MarkAsRead(ctx, employee, 1))
	require.Equal(t, []int64{1}, fb.marked)

	require.NoError(t, m.MarkAsRead(ctx, employee, 2))
	require.Equal(t, []int64{1}, fb.marked, "already read notifications skip the backend")

	read, err := m.List(ctx, employee, FilterRead)
	require.NoError(t, err)
	require.Len(t, read, 2)
}

func TestMarkAsReadFailureLeavesStateUnread(t *testing.T) {
	fb := seededBackend()
	fb.failIDs = map[int64]error{3: errors.New("timeout")}
	m := NewManager(fb)
	ctx := context.Background()
	_, err := m.Refresh(ctx, employee)
	require.NoError(t, err)

	require.Error(t, m.MarkAsRead(ctx, employee, 3))
	require.Equal(t, 2, m.UnreadCount(employee))
}

func TestMarkMultipleAsReadTracksEachItem(t *testing.T) {
	fb := seededBackend()
	fb.failIDs = map[int64]error{3: errors.New("timeout")}
	pub := &recordingPublisher{}
	m := NewManager(fb, WithPublisher(pub), WithConcurrency(2))
	ctx := context.Background()
	_, err := m.Refresh(ctx, employee)
	require.NoError(t, err)

	results, err := m.MarkMultipleAsRead(ctx, employee, []int64{1, 2, 3, 1})
	require.Error(t, err)
	require.Len(t, results, 3)

	byID := map[int64]Result{}
	for _, res := range results {
		byID[res.ID] = res
	}
	require.True(t, byID[1].Success)
	require.False(t, byID[1].Skipped)
	require.True(t, byID[2].Success)
	require.True(t, byID[2].Skipped)
	require.False(t, byID[3].Success)
	require.Contains(t, byID[3].Error, "timeout")

	unread, err := m.List(ctx, employee, FilterUnread)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, int64(3), unread[0].ID)

	require.NotEmpty(t, pub.events)
	last := pub.events[len(pub.events)-1]
	require.Equal(t, "read", last.Event)
	require.Equal(t, 1, last.UnreadCount)
}

func TestMarkMultipleAsReadAllSucceed(t *testing.T) {
	fb := seededBackend()
	m := NewManager(fb)
	ctx := context.Background()
	_, err := m.Refresh(ctx, employee)
	require.NoError(t, err)

	results, err := m.MarkMultipleAsRead(ctx, employee, []int64{1, 3})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Zero(t, m.UnreadCount(employee))
}

func TestForgetDropsState(t *testing.T) {
	fb := seededBackend()
	m := NewManager(fb)
	ctx := context.Background()
	_, err := m.Refresh(ctx, employee)
	require.NoError(t, err)

	m.Forget(employee)
	require.Zero(t, m.UnreadCount(employee))

	_, err = m.List(ctx, employee, FilterAll)
	require.NoError(t, err)
	require.Equal(t, 2, fb.listHits)
}
