package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/axoncache/pkg/logger"
)

// Logger writes a concise structured access log for each admin request. Health probes are
// logged at debug level so they do not drown the log. A nil log uses the global logger.
func Logger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.WithModule("http")
	}
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if isHealthProbe(c.FullPath()) {
			log.Debug("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

func isHealthProbe(route string) bool {
	switch route {
	case "/health", "/health/live", "/health/ready":
		return true
	}
	return false
}
