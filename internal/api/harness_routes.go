package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/hmi-link/internal/api/middleware"
	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
)

// RegisterHarnessRoutes 注册测试端控制路由
func RegisterHarnessRoutes(r gin.IRouter, tel TelemetryCommands, tracker ButtonTracker, authCfg cfgpkg.HTTPAuthConfig, logger *zap.Logger) {
	if r == nil || tel == nil || tracker == nil {
		return
	}
	h := NewHarnessHandler(tel, tracker, logger)

	api := r.Group("/api")
	api.GET("/buttons", h.GetButtons)
	api.GET("/engine-hours", h.GetEngineHours)

	control := api.Group("")
	control.Use(middleware.APIKeyAuth(authCfg, logger))
	if !authCfg.Enabled {
		logger.Warn("api authentication disabled - only for development!")
	}
	control.POST("/rpm", h.PublishRPM)
	control.POST("/telltales/:index", h.PublishTelltale)
	control.POST("/gauges/:index", h.PublishGauge)
	control.POST("/engine-hours", h.PublishEngineHours)
	control.POST("/engine-hours/reset", h.ResetEngineHours)
	control.POST("/popup", h.PublishPopup)
	control.POST("/fuel-rate", h.PublishFuelRate)
	control.POST("/def-rate", h.PublishDefRate)
	control.POST("/avg-engine-load", h.PublishAvgEngineLoad)

	logger.Info("harness routes registered", zap.Int("endpoints", 11))
}
