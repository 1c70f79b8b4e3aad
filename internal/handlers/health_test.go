package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/axoncache/internal/cache"
	"github.com/charlesng35/axoncache/internal/monitoring"
	"github.com/charlesng35/axoncache/internal/monitoring/checks"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newHealthRouter(pinger checks.Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	manager := monitoring.NewHealthManager(time.Second)
	manager.RegisterReadiness(checks.Store(pinger, "memory"))
	handler := NewHealthHandler(manager)

	r := gin.New()
	r.GET("/health/live", handler.Live)
	r.GET("/health/ready", handler.Ready)
	return r
}

func TestHealthReady(t *testing.T) {
	r := newHealthRouter(cache.NewMemoryStore())

	w, payload := serve(r, http.MethodGet, "/health/ready")
	require.Equal(t, http.StatusOK, w.Code)
	data := payload.Data.(map[string]any)
	require.Equal(t, "up", data["status"])

	checkList := data["checks"].([]any)
	require.Len(t, checkList, 1)
	require.Equal(t, "store:memory", checkList[0].(map[string]any)["component"])
}

func TestHealthReadyStoreDown(t *testing.T) {
	r := newHealthRouter(pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }))

	w, payload := serve(r, http.MethodGet, "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.False(t, payload.Success)
	require.Equal(t, "cache.unavailable", payload.Error.Code)
	require.Equal(t, "down", payload.Data.(map[string]any)["status"])

	w, _ = serve(r, http.MethodGet, "/health/live")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandlerWithoutManager(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health/ready", NewHealthHandler(nil).Ready)

	w, _ := serve(r, http.MethodGet, "/health/ready")
	require.Equal(t, http.StatusOK, w.Code)
}
