package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/axoncache/internal/handlers"
)

func registerCacheRoutes(api *gin.RouterGroup, handler *handlers.CacheHandler) {
	group := api.Group("/cache")
	group.GET("/stats", handler.Stats)
	group.DELETE("", handler.Clear)
	group.POST("/sweep", handler.Sweep)
}
