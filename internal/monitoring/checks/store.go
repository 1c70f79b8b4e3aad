package checks

import (
	"context"
	"time"

	"github.com/charlesng35/axoncache/internal/monitoring"
)

// Pinger is implemented by the cache backend and every entry store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store returns a readiness probe that pings the entry store. The component is reported as
// "store:{name}" so operators can tell a Redis fallback apart.
func Store(pinger Pinger, name string) monitoring.Check {
	component := "store"
	if name != "" {
		component += ":" + name
	}

	return monitoring.NewCheck(component, func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if pinger == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "store not configured"}
		}
		return monitoring.ResultFromError(component, pinger.Ping(ctx), time.Since(start))
	})
}
