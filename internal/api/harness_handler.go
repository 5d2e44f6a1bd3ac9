package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/hmi-link/internal/harness"
)

// TelemetryCommands 测试端遥测发布操作
type TelemetryCommands interface {
	PublishRPM(rpm int) error
	PublishTelltale(index int, on bool) error
	PublishGauge(index int, percent int) error
	PublishEngineHours(ctx context.Context, hours float64) error
	ResetEngineHours(ctx context.Context) error
	PublishPopup(code int) error
	PublishFuelRate(rate float64) error
	PublishDefRate(rate float64) error
	PublishAvgEngineLoad(percent int) error
	EngineHours() float64
}

// ButtonTracker 仪表端回传的按键状态
type ButtonTracker interface {
	States() harness.ButtonStates
}

// HarnessHandler 测试端控制 API
type HarnessHandler struct {
	tel     TelemetryCommands
	tracker ButtonTracker
	logger  *zap.Logger
}

// NewHarnessHandler 创建测试端 API 处理器
func NewHarnessHandler(tel TelemetryCommands, tracker ButtonTracker, logger *zap.Logger) *HarnessHandler {
	return &HarnessHandler{tel: tel, tracker: tracker, logger: logger}
}

// bindValue 读取 {"value": x}
func bindValue(c *gin.Context) (float64, bool) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return 0, false
	}
	return *req.Value, true
}

func bindIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, err)
		return 0, false
	}
	return index, true
}

func (h *HarnessHandler) respond(c *gin.Context, kind string, err error) {
	if err != nil {
		h.logger.Debug("publish request failed", zap.String("kind", kind), zap.Error(err))
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"published": kind})
}

// PublishRPM POST /api/rpm
func (h *HarnessHandler) PublishRPM(c *gin.Context) {
	v, ok := bindValue(c)
	if !ok {
		return
	}
	h.respond(c, "rpm", h.tel.PublishRPM(int(v)))
}

type telltaleRequest struct {
	On *bool `json:"on" binding:"required"`
}

// PublishTelltale POST /api/telltales/:index
func (h *HarnessHandler) PublishTelltale(c *gin.Context) {
	index, ok := bindIndex(c)
	if !ok {
		return
	}
	var req telltaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.respond(c, "telltale", h.tel.PublishTelltale(index, *req.On))
}

// PublishGauge POST /api/gauges/:index
func (h *HarnessHandler) PublishGauge(c *gin.Context) {
	index, ok := bindIndex(c)
	if !ok {
		return
	}
	v, ok := bindValue(c)
	if !ok {
		return
	}
	h.respond(c, "gauge", h.tel.PublishGauge(index, int(v)))
}

// PublishEngineHours POST /api/engine-hours
func (h *HarnessHandler) PublishEngineHours(c *gin.Context) {
	v, ok := bindValue(c)
	if !ok {
		return
	}
	if err := h.tel.PublishEngineHours(c.Request.Context(), v); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"engineHours": h.tel.EngineHours()})
}

// GetEngineHours GET /api/engine-hours
func (h *HarnessHandler) GetEngineHours(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"engineHours": h.tel.EngineHours()})
}

// ResetEngineHours POST /api/engine-hours/reset
func (h *HarnessHandler) ResetEngineHours(c *gin.Context) {
	if err := h.tel.ResetEngineHours(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"engineHours": h.tel.EngineHours()})
}

// PublishPopup POST /api/popup
func (h *HarnessHandler) PublishPopup(c *gin.Context) {
	v, ok := bindValue(c)
	if !ok {
		return
	}
	h.respond(c, "popup", h.tel.PublishPopup(int(v)))
}

// PublishFuelRate POST /api/fuel-rate
func (h *HarnessHandler) PublishFuelRate(c *gin.Context) {
	v, ok := bindValue(c)
	if !ok {
		return
	}
	h.respond(c, "fuel_rate", h.tel.PublishFuelRate(v))
}

// PublishDefRate POST /api/def-rate
func (h *HarnessHandler) PublishDefRate(c *gin.Context) {
	v, ok := bindValue(c)
	if !ok {
		return
	}
	h.respond(c, "def_rate", h.tel.PublishDefRate(v))
}

// PublishAvgEngineLoad POST /api/avg-engine-load
func (h *HarnessHandler) PublishAvgEngineLoad(c *gin.Context) {
	v, ok := bindValue(c)
	if !ok {
		return
	}
	h.respond(c, "avg_engine_load", h.tel.PublishAvgEngineLoad(int(v)))
}

// GetButtons GET /api/buttons
func (h *HarnessHandler) GetButtons(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.States())
}
