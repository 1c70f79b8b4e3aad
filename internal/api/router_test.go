package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/axoncache/internal/app"
	"github.com/charlesng35/axoncache/pkg/response"
)

func newTestConfig() *app.Config {
	return &app.Config{
		Server:   app.ServerConfig{Port: 8000, ShutdownTimeout: time.Second},
		Database: app.DatabaseConfig{Driver: "sqlite", Path: ":memory:"},
		Cache: app.CacheConfig{
			Store:         "memory",
			SweepSchedule: "@every 1m",
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
}

func newTestRouter(t *testing.T, cfg *app.Config) (*app.Runtime, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rt, err := app.NewRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Close()) })

	router, err := NewRouter(cfg, rt)
	require.NoError(t, err)
	return rt, router
}

func do(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestRouterAdminRoutes(t *testing.T) {
	rt, router := newTestRouter(t, newTestConfig())
	ctx := context.Background()

	require.NoError(t, rt.Helper.CachePostDetail(ctx, 1, map[string]any{"title": "hello"}))

	w := do(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = do(router, http.MethodGet, "/api/cache/stats")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.EqualValues(t, 1, payload.Data.(map[string]any)["total_items"])

	w = do(router, http.MethodDelete, "/api/cache")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodDelete, "/api/cache?all=true")
	require.Equal(t, http.StatusOK, w.Code)

	var detail map[string]any
	require.False(t, rt.Helper.GetCachedPostDetail(ctx, 1, &detail))

	w = do(router, http.MethodPost, "/api/cache/sweep")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(router, http.MethodGet, "/api/unknown")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	_, router := newTestRouter(t, newTestConfig())

	require.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/cache/stats").Code)

	w := do(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "axoncache_api_latency_seconds"))
}

func TestRouterMonitoringToggles(t *testing.T) {
	cfg := newTestConfig()
	cfg.Monitoring.Prometheus.Enabled = false
	cfg.Monitoring.Health.Enabled = false
	_, router := newTestRouter(t, cfg)

	require.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/metrics").Code)

	w := do(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "disabled")
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	_, err := NewRouter(nil, &app.Runtime{})
	require.Error(t, err)

	_, err = NewRouter(newTestConfig(), nil)
	require.Error(t, err)
}
