package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/axoncache/internal/app/maintenance"
	"github.com/charlesng35/axoncache/internal/cache"
	appErrors "github.com/charlesng35/axoncache/pkg/errors"
	"github.com/charlesng35/axoncache/pkg/response"
)

// Sweeper removes expired entries and orphaned index references on demand.
type Sweeper interface {
	Sweep(ctx context.Context) (maintenance.SweepStats, error)
}

// CacheHandler exposes the administrative cache operations.
type CacheHandler struct {
	backend *cache.Backend
	sweeper Sweeper
	store   string
}

// NewCacheHandler constructs a cache admin handler. sweeper may be nil, in which case manual
// sweeps answer 503.
func NewCacheHandler(backend *cache.Backend, sweeper Sweeper, store string) (*CacheHandler, error) {
	if backend == nil {
		return nil, errors.New("cache handler: backend is required")
	}
	return &CacheHandler{backend: backend, sweeper: sweeper, store: store}, nil
}

type cacheStatsResponse struct {
	Store        string  `json:"store"`
	TotalItems   int64   `json:"total_items"`
	ActiveItems  int64   `json:"active_items"`
	ExpiredItems int64   `json:"expired_items"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	HitRatio     float64 `json:"hit_ratio"`
}

// Stats GET /api/cache/stats
func (h *CacheHandler) Stats(c *gin.Context) {
	stats, err := h.backend.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, appErrors.ErrCacheUnavailable.WithInternal(err))
		return
	}

	hits, misses := h.backend.Lookups()
	response.Success(c, http.StatusOK, cacheStatsResponse{
		Store:        h.store,
		TotalItems:   stats.Total,
		ActiveItems:  stats.Active,
		ExpiredItems: stats.Expired,
		Hits:         hits,
		Misses:       misses,
		HitRatio:     h.backend.HitRatio(),
	})
}

// Clear DELETE /api/cache?all=true
func (h *CacheHandler) Clear(c *gin.Context) {
	all, err := strconv.ParseBool(strings.TrimSpace(c.DefaultQuery("all", "false")))
	if err != nil || !all {
		response.Error(c, appErrors.ErrConfirmationRequired)
		return
	}

	if err := h.backend.Clear(c.Request.Context()); err != nil {
		response.Error(c, appErrors.ErrCacheUnavailable.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cleared": true})
}

// Sweep POST /api/cache/sweep
func (h *CacheHandler) Sweep(c *gin.Context) {
	if h.sweeper == nil {
		response.Error(c, appErrors.ErrCacheUnavailable)
		return
	}

	stats, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		response.Error(c, appErrors.ErrCacheUnavailable.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, stats)
}
