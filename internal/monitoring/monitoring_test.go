package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/insurai/portal/internal/database/testutil"
	"github.com/insurai/portal/internal/monitoring"
	"github.com/insurai/portal/internal/monitoring/checks"
)

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(time.Second)
	manager.RegisterReadiness(monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("backend", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "database", report.Checks[0].Component)
	require.Equal(t, "backend", report.Checks[1].Component)
}

func TestHealthManagerRecoversPanics(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(time.Second)
	manager.RegisterLiveness(monitoring.NewCheck("boom", func(context.Context) monitoring.ProbeResult {
		panic("probe exploded")
	}))

	report := manager.EvaluateLiveness(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Contains(t, report.Checks[0].Details, "probe exploded")
}

func TestMergeReportsDegraded(t *testing.T) {
	t.Parallel()

	live := monitoring.HealthReport{Checks: []monitoring.ProbeResult{{Component: "process", Status: monitoring.StatusUp}}}
	ready := monitoring.HealthReport{Checks: []monitoring.ProbeResult{{Component: "backend", Status: monitoring.StatusDegraded}}}

	merged := monitoring.MergeReports(live, ready)
	require.False(t, merged.Success)
	require.Equal(t, monitoring.StatusDegraded, merged.Status)
	require.Len(t, merged.Checks, 2)
}

func TestDatabaseCheck(t *testing.T) {
	t.Parallel()

	db := testutil.MustOpenTestDB(t)
	result := checks.Database(db).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)

	result = checks.Database(nil).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestBackendCheck(t *testing.T) {
	t.Parallel()

	require.Equal(t, monitoring.StatusUp, checks.Backend(stubPinger{}).Run(context.Background()).Status)

	result := checks.Backend(stubPinger{err: errors.New("dial tcp: refused")}).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, result.Status)
	require.Contains(t, result.Details, "refused")
}

type stubObserver struct {
	at  time.Time
	err error
}

func (s stubObserver) LastRun() (time.Time, error) { return s.at, s.err }

func TestMaintenanceCheck(t *testing.T) {
	t.Parallel()

	check := checks.Maintenance(stubObserver{}, 0)
	require.Equal(t, monitoring.StatusUp, check.Run(context.Background()).Status)

	check = checks.Maintenance(stubObserver{at: time.Now(), err: errors.New("trim failed")}, 0)
	result := check.Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, result.Status)
	require.Equal(t, "trim failed", result.Details)

	check = checks.Maintenance(stubObserver{at: time.Now().Add(-time.Hour)}, time.Minute)
	require.Equal(t, monitoring.StatusDegraded, check.Run(context.Background()).Status)
}
