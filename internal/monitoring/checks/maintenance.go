package checks

import (
	"context"
	"time"

	"github.com/insurai/portal/internal/monitoring"
)

const defaultMaintenanceMaxAge = 6 * time.Hour

// MaintenanceObserver exposes the outcome of the most recent cleanup run.
type MaintenanceObserver interface {
	LastRun() (time.Time, error)
}

// Maintenance verifies that background cleanup runs successfully within the
// expected interval. When maxAge is zero a 6h window is used.
func Maintenance(observer MaintenanceObserver, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		if observer == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "maintenance disabled"}
		}

		ranAt, err := observer.LastRun()
		switch {
		case ranAt.IsZero():
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "pending first run"}
		case err != nil:
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: err.Error()}
		case time.Since(ranAt) > maxAge:
			return monitoring.ProbeResult{
				Status:  monitoring.StatusDegraded,
				Details: "stale run " + ranAt.UTC().Format(time.RFC3339),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	})
}
