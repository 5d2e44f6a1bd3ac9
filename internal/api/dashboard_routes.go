package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/hmi-link/internal/api/middleware"
	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
)

// RegisterDashboardRoutes 注册仪表端路由；读取无需认证，变更需要
func RegisterDashboardRoutes(r gin.IRouter, state DashboardState, buttons ButtonCommands, authCfg cfgpkg.HTTPAuthConfig, logger *zap.Logger) {
	if r == nil || state == nil || buttons == nil {
		return
	}
	h := NewDashboardHandler(state, buttons, logger)

	api := r.Group("/api")
	api.GET("/state", h.GetState)
	api.GET("/buttons", h.GetButtons)

	control := api.Group("")
	control.Use(middleware.APIKeyAuth(authCfg, logger))
	if !authCfg.Enabled {
		logger.Warn("api authentication disabled - only for development!")
	}
	control.POST("/buttons/:index", h.PublishButton)
	control.PUT("/creep", h.SetCreep)
	control.POST("/trip/reset", h.ResetTrip)
	control.PUT("/trip/last-reset", h.SetLastReset)
	control.PUT("/fuel-usage", h.SetFuelUsage)

	logger.Info("dashboard routes registered", zap.Int("endpoints", 7))
}
