package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/axoncache/internal/app"
	"github.com/charlesng35/axoncache/internal/handlers"
	"github.com/charlesng35/axoncache/internal/middleware"
	"github.com/charlesng35/axoncache/internal/monitoring"
	"github.com/charlesng35/axoncache/internal/monitoring/checks"
)

const healthCheckTimeout = 2 * time.Second

// NewRouter builds the Gin engine for the admin API and wires middleware and routes.
func NewRouter(cfg *app.Config, rt *app.Runtime) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if rt == nil || rt.Backend == nil {
		return nil, fmt.Errorf("cache runtime must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger(nil))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	health := monitoring.NewHealthManager(healthCheckTimeout)
	health.RegisterReadiness(checks.Store(rt.Backend, rt.StoreName))

	var sweeper handlers.Sweeper
	if rt.Cleaner != nil {
		sweeper = rt.Cleaner
		health.RegisterReadiness(checks.Sweeper(rt.Cleaner, 0))
	}

	registerHealthRoutes(r, cfg, handlers.NewHealthHandler(health))
	registerMonitoringRoutes(r, cfg)

	cacheHandler, err := handlers.NewCacheHandler(rt.Backend, sweeper, rt.StoreName)
	if err != nil {
		return nil, err
	}
	registerCacheRoutes(r.Group("/api"), cacheHandler)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
