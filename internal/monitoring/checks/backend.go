package checks

import (
	"context"
	"time"

	"github.com/insurai/portal/internal/monitoring"
)

// Pinger reaches the system-of-record API.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend returns a readiness probe for the insurance backend. An unreachable
// backend degrades the portal rather than taking it down: sessions and report
// history stay usable.
func Backend(p Pinger) monitoring.Check {
	return monitoring.NewCheck("backend", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if p == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "backend not configured"}
		}
		if err := p.Ping(ctx); err != nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  err.Error(),
				Duration: time.Since(start),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	})
}
