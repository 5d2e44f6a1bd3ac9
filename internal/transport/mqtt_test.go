package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
	"github.com/taoyao-code/hmi-link/internal/protocol/can"
)

func TestMQTT_ReceiverDeliversFrames(t *testing.T) {
	tr := NewMQTT(cfgpkg.MQTTConfig{
		Broker:         "tcp://127.0.0.1:1883",
		ClientID:       "hmi-link-test",
		ConnectTimeout: time.Second,
	}, zaptest.NewLogger(t))
	ctx := context.Background()

	pub, err := tr.Bind(ctx, "tcp://*:5599")
	if err != nil {
		t.Skip("MQTT broker not available, skipping test")
	}
	t.Cleanup(func() { _ = pub.Close() })

	sink := &frameSink{}
	r := NewReceiver(tr, "tcp://127.0.0.1:5599", sink.add, zaptest.NewLogger(t), nil)
	r.Start(ctx)
	t.Cleanup(func() { r.Stop(100 * time.Millisecond) })
	waitFor(t, r.Running)

	popup := can.EncodePopup(-1)
	require.Eventually(t, func() bool {
		_ = pub.Publish(popup.Bytes())
		return len(sink.snapshot()) > 0
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, popup, sink.snapshot()[0])
}

func TestMQTT_BrokerUnreachable(t *testing.T) {
	tr := NewMQTT(cfgpkg.MQTTConfig{
		Broker:         freeEndpoint(t),
		ClientID:       "hmi-link-test",
		ConnectTimeout: 500 * time.Millisecond,
	}, zaptest.NewLogger(t))

	_, err := tr.Bind(context.Background(), "tcp://*:5599")
	assert.Error(t, err)
}
