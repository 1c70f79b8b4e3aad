package main

import (
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/axoncache/internal/app"
)

func testConfig(store string) *app.Config {
	return &app.Config{
		Server:   app.ServerConfig{Port: 8000, ShutdownTimeout: time.Second},
		Database: app.DatabaseConfig{Driver: "sqlite", Path: ":memory:"},
		Cache: app.CacheConfig{
			Store:         store,
			SweepSchedule: "@every 1h",
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
}

func TestBootstrapRuntime(t *testing.T) {
	for _, store := range []string{"memory", "database"} {
		t.Run(store, func(t *testing.T) {
			ctx := context.Background()
			stack, err := bootstrapRuntime(ctx, testConfig(store), zap.NewNop())
			require.NoError(t, err)
			require.Equal(t, store, stack.Runtime.StoreName)

			rt := stack.Runtime
			require.NoError(t, rt.Backend.Set(ctx, "chat_messages_1", []string{"hi"}, 0))

			w := httptest.NewRecorder()
			stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			require.Equal(t, http.StatusOK, w.Code)

			stack.Shutdown(zap.NewNop())
			if store == "memory" {
				stats, err := rt.Store.Stats(ctx, time.Now())
				require.NoError(t, err)
				require.Zero(t, stats.Total, "shutdown sweep removes expired entries")
			}
			require.Nil(t, stack.Runtime)

			stack.Shutdown(zap.NewNop())
		})
	}
}

func TestBootstrapRuntimeRejectsBadSchedule(t *testing.T) {
	cfg := testConfig("memory")
	cfg.Cache.SweepSchedule = "sometimes"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "start cache sweeper")
}

func TestRunFlags(t *testing.T) {
	err := run(context.Background(), []string{"-h"})
	require.ErrorIs(t, err, flag.ErrHelp)

	err = run(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}
