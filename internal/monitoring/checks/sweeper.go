package checks

import (
	"context"
	"time"

	"github.com/charlesng35/axoncache/internal/monitoring"
)

const defaultSweepMaxAge = 15 * time.Minute

// SweepReporter exposes the outcome of the most recent background sweep.
type SweepReporter interface {
	LastSweep() (at time.Time, err error)
}

// Sweeper reports degraded when the last sweep failed or is older than maxAge. Expiry is still
// enforced on read, so a stalled sweeper never fails readiness.
func Sweeper(reporter SweepReporter, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultSweepMaxAge
	}

	return monitoring.NewCheck("sweeper", func(context.Context) monitoring.ProbeResult {
		if reporter == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "sweeper disabled"}
		}

		at, err := reporter.LastSweep()
		switch {
		case at.IsZero():
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "pending first run"}
		case err != nil:
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: err.Error()}
		case time.Since(at) > maxAge:
			return monitoring.ProbeResult{
				Status:  monitoring.StatusDegraded,
				Details: "stale run " + at.UTC().Format(time.RFC3339),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	})
}
