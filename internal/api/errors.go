package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taoyao-code/hmi-link/internal/dashboard"
	"github.com/taoyao-code/hmi-link/internal/protocol/can"
	"github.com/taoyao-code/hmi-link/internal/publisher"
)

// statusFor 错误到 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, can.ErrInvalidIndex), errors.Is(err, can.ErrUnknownID):
		return http.StatusBadRequest
	case errors.Is(err, publisher.ErrEngineHoursBackward):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrConsumerStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
