package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/axoncache/internal/cache"
	"github.com/charlesng35/axoncache/internal/monitoring"
	"github.com/charlesng35/axoncache/internal/monitoring/checks"
)

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(time.Second)
	manager.RegisterReadiness(monitoring.NewCheck("store:database", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("store:redis", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("", nil))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "store:database", report.Checks[0].Component)
	require.Equal(t, "store:redis", report.Checks[1].Component)

	live := manager.EvaluateLiveness(context.Background())
	require.True(t, live.Success)
	require.Empty(t, live.Checks)
}

func TestHealthManagerDegradedStaysReady(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(time.Second)
	manager.RegisterReadiness(monitoring.NewCheck("sweeper", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("panicky", func(context.Context) monitoring.ProbeResult {
		panic("probe exploded")
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Equal(t, "probe exploded", report.Checks[1].Details)

	manager = monitoring.NewHealthManager(time.Second)
	manager.RegisterReadiness(monitoring.NewCheck("sweeper", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded}
	}))
	report = manager.EvaluateReadiness(context.Background())
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
}

func TestResultFromError(t *testing.T) {
	t.Parallel()

	require.Equal(t, monitoring.StatusUp, monitoring.ResultFromError("store", nil, time.Millisecond).Status)
	require.Equal(t, monitoring.StatusDown, monitoring.ResultFromError("store", errors.New("refused"), 0).Status)
	require.Equal(t, monitoring.StatusDegraded, monitoring.ResultFromError("store", context.DeadlineExceeded, -1).Status)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestStoreCheck(t *testing.T) {
	t.Parallel()

	result := checks.Store(cache.NewMemoryStore(), "memory").Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)

	check := checks.Store(pingFunc(func(context.Context) error { return cache.ErrStoreUnavailable }), "redis")
	require.Equal(t, "store:redis", check.Name)
	result = check.Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)

	require.Equal(t, monitoring.StatusDown, checks.Store(nil, "").Run(context.Background()).Status)
}

type lastSweep struct {
	at  time.Time
	err error
}

func (l lastSweep) LastSweep() (time.Time, error) { return l.at, l.err }

func TestSweeperCheck(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cases := []struct {
		name     string
		reporter checks.SweepReporter
		want     monitoring.ProbeStatus
	}{
		{"disabled", nil, monitoring.StatusUp},
		{"pending", lastSweep{}, monitoring.StatusUp},
		{"fresh", lastSweep{at: time.Now()}, monitoring.StatusUp},
		{"failed", lastSweep{at: time.Now(), err: errors.New("delete expired failed")}, monitoring.StatusDegraded},
		{"stale", lastSweep{at: time.Now().Add(-time.Hour)}, monitoring.StatusDegraded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := checks.Sweeper(tc.reporter, 10*time.Minute).Run(ctx)
			require.Equal(t, tc.want, result.Status)
		})
	}
}
