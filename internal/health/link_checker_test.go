package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/taoyao-code/hmi-link/internal/transport"
)

type fakeReceiver struct {
	running bool
	err     error
	last    time.Time
}

func (f fakeReceiver) Running() bool                  { return f.running }
func (f fakeReceiver) Err() error                     { return f.err }
func (f fakeReceiver) Endpoint() string               { return "tcp://127.0.0.1:5555" }
func (f fakeReceiver) LastFrameAt() time.Time         { return f.last }
func (f fakeReceiver) Stats() transport.ReceiverStats { return transport.ReceiverStats{Received: 3} }

func TestReceiverChecker(t *testing.T) {
	ctx := context.Background()

	r := NewReceiverChecker("receiver", fakeReceiver{running: true, last: time.Now()}, time.Second).Check(ctx)
	assert.Equal(t, StatusHealthy, r.Status)
	assert.Equal(t, uint64(3), r.Details["received"])

	r = NewReceiverChecker("receiver", fakeReceiver{running: true}, time.Second).Check(ctx)
	assert.Equal(t, StatusDegraded, r.Status)

	r = NewReceiverChecker("receiver", fakeReceiver{running: true}, 0).Check(ctx)
	assert.Equal(t, StatusHealthy, r.Status)

	r = NewReceiverChecker("receiver", fakeReceiver{}, 0).Check(ctx)
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Equal(t, "receive loop not running", r.Message)

	r = NewReceiverChecker("receiver", fakeReceiver{err: errors.New("refused")}, 0).Check(ctx)
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Contains(t, r.Message, "refused")
}

type fakeConsumer bool

func (f fakeConsumer) Running() bool { return bool(f) }

type fakeDepth int

func (f fakeDepth) Len() int { return int(f) }

func TestConsumerChecker(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, StatusHealthy, NewConsumerChecker("consumer", fakeConsumer(true), fakeDepth(3), 100).Check(ctx).Status)
	assert.Equal(t, StatusDegraded, NewConsumerChecker("consumer", fakeConsumer(true), fakeDepth(300), 100).Check(ctx).Status)
	assert.Equal(t, StatusUnhealthy, NewConsumerChecker("consumer", fakeConsumer(false), fakeDepth(0), 100).Check(ctx).Status)
}

func TestHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	RegisterHTTPRoutes(r, NewAggregator(&mockChecker{"receiver", StatusUnhealthy}))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"receiver"`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	r = gin.New()
	RegisterHTTPRoutes(r, NewAggregator(&mockChecker{"receiver", StatusDegraded}))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReadiness(t *testing.T) {
	r := New()
	assert.False(t, r.Ready())
	r.SetPublisherReady(true)
	assert.False(t, r.Ready())
	r.SetConsumerReady(true)
	assert.True(t, r.Ready())
}
