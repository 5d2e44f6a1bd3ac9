package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
	"github.com/taoyao-code/hmi-link/internal/harness"
	"github.com/taoyao-code/hmi-link/internal/protocol/can"
	"github.com/taoyao-code/hmi-link/internal/publisher"
	"github.com/taoyao-code/hmi-link/internal/queue"
	"github.com/taoyao-code/hmi-link/internal/transport"
)

func newHarnessRouter(t *testing.T) (*gin.Engine, transport.Subscriber, *harness.Tracker, *publisher.Telemetry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	bus := transport.NewLoopback()
	pub, err := bus.Bind(ctx, "tcp://*:5555")
	require.NoError(t, err)
	sub, err := bus.Connect(ctx, "tcp://127.0.0.1:5555")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	tel := publisher.NewTelemetry(ctx, pub, nil, nil, nil)
	tracker := harness.NewTracker(queue.New(), 0, nil)

	r := gin.New()
	RegisterHarnessRoutes(r, tel, tracker, cfgpkg.HTTPAuthConfig{}, zap.NewNop())
	return r, sub, tracker, tel
}

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func recvFrame(t *testing.T, sub transport.Subscriber) can.Frame {
	t.Helper()
	raw, err := sub.Recv()
	require.NoError(t, err)
	f, err := can.ParseFrame(raw)
	require.NoError(t, err)
	return f
}

func TestHarness_PublishEndpoints(t *testing.T) {
	r, sub, _, _ := newHarnessRouter(t)

	tests := []struct {
		path string
		body string
		id   uint32
	}{
		{"/api/rpm", `{"value":1500}`, can.IDRPM},
		{"/api/telltales/3", `{"on":false}`, can.IDTelltaleBase + 3},
		{"/api/gauges/2", `{"value":75}`, can.IDGaugeBase + 2},
		{"/api/popup", `{"value":4}`, can.IDPopup},
		{"/api/fuel-rate", `{"value":12.7}`, can.IDFuelRate},
		{"/api/def-rate", `{"value":3}`, can.IDDefRate},
		{"/api/avg-engine-load", `{"value":55}`, can.IDAvgEngineLoad},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := post(r, tt.path, tt.body)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, tt.id, recvFrame(t, sub).ID)
		})
	}
}

func TestHarness_EngineHours(t *testing.T) {
	r, sub, _, tel := newHarnessRouter(t)

	require.Equal(t, http.StatusOK, post(r, "/api/engine-hours", `{"value":10}`).Code)
	recvFrame(t, sub)

	rr := post(r, "/api/engine-hours", `{"value":5}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, 10.0, tel.EngineHours())

	require.Equal(t, http.StatusOK, post(r, "/api/engine-hours/reset", "").Code)
	f := recvFrame(t, sub)
	assert.Equal(t, can.IDEngineHours, f.ID)
	assert.Equal(t, [8]byte{}, f.Data)
	assert.Equal(t, 0.0, tel.EngineHours())
}

func TestHarness_BadRequests(t *testing.T) {
	r, _, _, _ := newHarnessRouter(t)

	assert.Equal(t, http.StatusBadRequest, post(r, "/api/telltales/10", `{"on":true}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/api/gauges/9", `{"value":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/api/rpm", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/api/rpm", `not json`).Code)
}

func TestHarness_GetButtons(t *testing.T) {
	r, _, tracker, _ := newHarnessRouter(t)
	tracker.Handle(can.EncodeButton(int(can.ButtonCreep), true))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/buttons", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"creepActive":true`)
	assert.Contains(t, rr.Body.String(), `"isoActive":false`)
}
