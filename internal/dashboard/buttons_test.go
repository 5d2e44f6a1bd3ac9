package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/taoyao-code/hmi-link/internal/protocol/can"
	"github.com/taoyao-code/hmi-link/internal/settings"
	"github.com/taoyao-code/hmi-link/internal/transport"
)

func TestButtons_PublishAndPersist(t *testing.T) {
	ctx := context.Background()
	bus := transport.NewLoopback()
	pub, err := bus.Bind(ctx, "tcp://*:5556")
	require.NoError(t, err)
	sub, err := bus.Connect(ctx, "tcp://127.0.0.1:5556")
	require.NoError(t, err)
	defer sub.Close()

	store := settings.NewMemoryStore()
	b := NewButtons(pub, store, zaptest.NewLogger(t), nil)

	require.NoError(t, b.Publish(ctx, int(can.ButtonCreep), true))

	raw, err := sub.Recv()
	require.NoError(t, err)
	f, err := can.ParseFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, can.IDButtonBase+2, f.ID)
	assert.Equal(t, byte(1), f.Data[7])

	states := b.States(ctx)
	assert.True(t, states[can.ButtonCreep])
	assert.False(t, states[can.ButtonISO])

	assert.ErrorIs(t, b.Publish(ctx, 8, true), can.ErrInvalidIndex)
	assert.ErrorIs(t, b.Publish(ctx, -1, true), can.ErrInvalidIndex)
}

func TestButtons_Replay(t *testing.T) {
	ctx := context.Background()
	bus := transport.NewLoopback()
	pub, _ := bus.Bind(ctx, "buttons")
	sub, _ := bus.Connect(ctx, "buttons")
	defer sub.Close()

	store := settings.NewMemoryStore()
	require.NoError(t, settings.SetBool(ctx, store, settings.ButtonKey(0), true))
	require.NoError(t, settings.SetBool(ctx, store, settings.ButtonKey(2), false))

	b := NewButtons(pub, store, nil, nil)
	assert.Equal(t, 2, b.Replay(ctx))

	first, err := sub.Recv()
	require.NoError(t, err)
	f, _ := can.ParseFrame(first)
	assert.Equal(t, can.IDButtonBase, f.ID)
	assert.Equal(t, byte(1), f.Data[7])

	second, err := sub.Recv()
	require.NoError(t, err)
	f, _ = can.ParseFrame(second)
	assert.Equal(t, can.IDButtonBase+2, f.ID)
	assert.Equal(t, byte(0), f.Data[7])
}
