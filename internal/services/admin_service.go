package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/insurai/portal/internal/cache"
	"github.com/insurai/portal/internal/models"
	"github.com/insurai/portal/pkg/logger"
)

const (
	defaultDirectoryTTL  = 5 * time.Minute
	employeeDirectoryKey = "directory:employees"
	hrDirectoryKey       = "directory:hr"
)

// AdminOverview is the admin landing page summary.
type AdminOverview struct {
	Employees      int          `json:"employees"`
	HRUsers        int          `json:"hrUsers"`
	Policies       int          `json:"policies"`
	ActivePolicies int          `json:"activePolicies"`
	Fraud          FraudSummary `json:"fraud"`
}

// AdminService exposes the directories and portfolio summaries to admins.
// Directory listings are cached briefly because they change rarely.
type AdminService struct {
	backend Backend
	store   cache.Store
	ttl     time.Duration
	log     *zap.Logger
}

// NewAdminService constructs an AdminService. store may be nil to disable caching.
func NewAdminService(b Backend, store cache.Store, ttl time.Duration) (*AdminService, error) {
	if b == nil {
		return nil, errors.New("admin service: backend is required")
	}
	if ttl <= 0 {
		ttl = defaultDirectoryTTL
	}
	return &AdminService{backend: b, store: store, ttl: ttl, log: logger.WithModule("admin")}, nil
}

// Overview counts directory entries, policies and fraud alerts concurrently.
func (s *AdminService) Overview(ctx context.Context) (*AdminOverview, error) {
	ctx = ensureContext(ctx)

	var (
		employees []models.Employee
		hrUsers   []models.HRUser
		policies  []models.Policy
		alerts    []models.FraudAlert
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		employees, err = s.Employees(gctx)
		return err
	})
	g.Go(func() (err error) {
		hrUsers, err = s.HRUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		policies, err = s.backend.ListPolicies(gctx)
		return err
	})
	g.Go(func() (err error) {
		alerts, err = s.backend.ListFraudAlerts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("admin service: overview: %w", err)
	}

	overview := &AdminOverview{
		Employees: len(employees),
		HRUsers:   len(hrUsers),
		Policies:  len(policies),
		Fraud:     SummarizeFraud(alerts),
	}
	for _, policy := range policies {
		if policy.Status == models.PolicyActive {
			overview.ActivePolicies++
		}
	}
	return overview, nil
}

// Employees returns the employee directory.
func (s *AdminService) Employees(ctx context.Context) ([]models.Employee, error) {
	employees, err := cachedList(ensureContext(ctx), s, employeeDirectoryKey, s.backend.ListEmployees)
	if err != nil {
		return nil, fmt.Errorf("admin service: employees: %w", err)
	}
	return employees, nil
}

// HRUsers returns the HR reviewer directory.
func (s *AdminService) HRUsers(ctx context.Context) ([]models.HRUser, error) {
	users, err := cachedList(ensureContext(ctx), s, hrDirectoryKey, s.backend.ListHRUsers)
	if err != nil {
		return nil, fmt.Errorf("admin service: hr users: %w", err)
	}
	return users, nil
}

// Policies returns every policy in the portfolio.
func (s *AdminService) Policies(ctx context.Context) ([]models.Policy, error) {
	policies, err := s.backend.ListPolicies(ensureContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("admin service: policies: %w", err)
	}
	return policies, nil
}

// InvalidateDirectories drops the cached directory listings.
func (s *AdminService) InvalidateDirectories(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Delete(ensureContext(ctx), employeeDirectoryKey, hrDirectoryKey)
}

// cachedList serves key from the store, falling back to fetch on a miss.
// Cache failures only cost a backend round trip.
func cachedList[T any](ctx context.Context, s *AdminService, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	if s.store != nil {
		var list []T
		found, err := cache.GetJSON(ctx, s.store, key, &list)
		if err != nil {
			s.log.Warn("directory cache read failed", zap.String("key", key), zap.Error(err))
		}
		if found {
			return list, nil
		}
	}

	list, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		if err := cache.SetJSON(ctx, s.store, key, list, s.ttl); err != nil {
			s.log.Warn("directory cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return list, nil
}
