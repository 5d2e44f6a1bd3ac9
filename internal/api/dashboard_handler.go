package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/hmi-link/internal/dashboard"
	"github.com/taoyao-code/hmi-link/internal/protocol/can"
)

// DashboardState 仪表端状态读取与变更操作
type DashboardState interface {
	Snapshot() dashboard.State
	SetCreepActive(ctx context.Context, active bool) error
	SetFuelUsage(ctx context.Context, v float64) error
	SetLastResetDate(ctx context.Context, date string) error
	SetLastTripHours(ctx context.Context, hours float64) error
	ResetTrip(ctx context.Context, date string) (dashboard.State, error)
}

// ButtonCommands 按键命令发布
type ButtonCommands interface {
	Publish(ctx context.Context, index int, pressed bool) error
	States(ctx context.Context) [can.ButtonCount]bool
}

// DashboardHandler 仪表端 API
type DashboardHandler struct {
	state   DashboardState
	buttons ButtonCommands
	logger  *zap.Logger
}

// NewDashboardHandler 创建仪表端 API 处理器
func NewDashboardHandler(state DashboardState, buttons ButtonCommands, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{state: state, buttons: buttons, logger: logger}
}

// GetState GET /api/state
func (h *DashboardHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.state.Snapshot())
}

type buttonRequest struct {
	Pressed *bool `json:"pressed" binding:"required"`
}

// PublishButton POST /api/buttons/:index
func (h *DashboardHandler) PublishButton(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, err)
		return
	}
	var req buttonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.buttons.Publish(c.Request.Context(), index, *req.Pressed); err != nil {
		abortWithError(c, err)
		return
	}
	h.logger.Debug("button command", zap.Int("index", index), zap.Bool("pressed", *req.Pressed))
	c.JSON(http.StatusOK, gin.H{"index": index, "pressed": *req.Pressed})
}

// GetButtons GET /api/buttons
func (h *DashboardHandler) GetButtons(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"buttons": h.buttons.States(c.Request.Context())})
}

type creepRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetCreep PUT /api/creep
func (h *DashboardHandler) SetCreep(c *gin.Context) {
	var req creepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.state.SetCreepActive(c.Request.Context(), *req.Active); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state.Snapshot())
}

type resetRequest struct {
	Date string `json:"date"`
}

// ResetTrip POST /api/trip/reset
func (h *DashboardHandler) ResetTrip(c *gin.Context) {
	var req resetRequest
	// 请求体可省略
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	s, err := h.state.ResetTrip(c.Request.Context(), req.Date)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type lastResetRequest struct {
	Date  string   `json:"date"`
	Hours *float64 `json:"hours"`
}

// SetLastReset PUT /api/trip/last-reset
func (h *DashboardHandler) SetLastReset(c *gin.Context) {
	var req lastResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Date == "" && req.Hours == nil {
		badRequest(c, errors.New("date or hours is required"))
		return
	}
	ctx := c.Request.Context()
	if req.Hours != nil {
		if err := h.state.SetLastTripHours(ctx, *req.Hours); err != nil {
			abortWithError(c, err)
			return
		}
	}
	if req.Date != "" {
		if err := h.state.SetLastResetDate(ctx, req.Date); err != nil {
			abortWithError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, h.state.Snapshot())
}

type valueRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

// SetFuelUsage PUT /api/fuel-usage
func (h *DashboardHandler) SetFuelUsage(c *gin.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.state.SetFuelUsage(c.Request.Context(), *req.Value); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state.Snapshot())
}
