package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/axoncache/internal/monitoring"
	appErrors "github.com/charlesng35/axoncache/pkg/errors"
	"github.com/charlesng35/axoncache/pkg/logger"
	"github.com/charlesng35/axoncache/pkg/response"
)

// HealthHandler serves liveness and readiness probes backed by a HealthManager.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

// NewHealthHandler constructs a health handler. A nil manager reports up with no checks.
func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	if manager == nil {
		manager = monitoring.NewHealthManager(0)
	}
	return &HealthHandler{manager: manager}
}

// Live GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	writeHealthReport(c, h.manager.EvaluateLiveness(c.Request.Context()))
}

// Ready GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	writeHealthReport(c, h.manager.EvaluateReadiness(c.Request.Context()))
}

func writeHealthReport(c *gin.Context, report monitoring.HealthReport) {
	if report.Success {
		response.Success(c, http.StatusOK, report)
		return
	}

	logger.WithModule("http").Warn("health probe failed",
		zap.String("path", c.Request.URL.Path),
		zap.Any("checks", report.Checks),
	)
	c.JSON(appErrors.ErrCacheUnavailable.StatusCode, response.Response{
		Success: false,
		Data:    report,
		Error: &response.ErrorInfo{
			Code:    appErrors.ErrCacheUnavailable.Code,
			Message: appErrors.ErrCacheUnavailable.Message,
		},
	})
}
