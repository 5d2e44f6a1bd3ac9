package dashboard

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/taoyao-code/hmi-link/internal/metrics"
	"github.com/taoyao-code/hmi-link/internal/protocol/can"
	"github.com/taoyao-code/hmi-link/internal/settings"
	"github.com/taoyao-code/hmi-link/internal/transport"
)

// Buttons 按键命令发布：编码按键帧，经仪表端发布端发出，并保存每个按键的最后状态
type Buttons struct {
	pub     transport.Publisher
	store   settings.Store
	log     *zap.Logger
	metrics *metrics.LinkMetrics
}

// NewButtons 创建按键发布器
func NewButtons(pub transport.Publisher, store settings.Store, log *zap.Logger, m *metrics.LinkMetrics) *Buttons {
	if store == nil {
		store = settings.NewMemoryStore()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewLinkMetrics(nil)
	}
	return &Buttons{pub: pub, store: store, log: log, metrics: m}
}

// Publish 发布按键按下/释放。状态先保存；发送失败只记录日志，不重试。
func (b *Buttons) Publish(ctx context.Context, index int, pressed bool) error {
	if index < 0 || index >= can.ButtonCount {
		b.metrics.PublishRejected.WithLabelValues("invalid_index").Inc()
		return fmt.Errorf("%w: button %d", can.ErrInvalidIndex, index)
	}
	if err := settings.SetBool(ctx, b.store, settings.ButtonKey(index), pressed); err != nil {
		b.log.Warn("persist button state failed", zap.Int("index", index), zap.Error(err))
	}
	b.send(index, pressed)
	return nil
}

func (b *Buttons) send(index int, pressed bool) {
	frame := can.EncodeButton(index, pressed)
	if err := b.pub.Publish(frame.Bytes()); err != nil {
		b.metrics.PublishErrors.Inc()
		b.log.Error("publish button failed", zap.Int("index", index), zap.Error(err))
		return
	}
	b.metrics.FramesPublished.WithLabelValues(can.KindButton.String()).Inc()
	b.log.Debug("published button status", zap.Int("index", index), zap.Bool("pressed", pressed))
}

// States 读取已保存的按键状态，未保存的为 false
func (b *Buttons) States(ctx context.Context) [can.ButtonCount]bool {
	var out [can.ButtonCount]bool
	for i := range out {
		out[i] = settings.GetBool(ctx, b.store, settings.ButtonKey(i), false)
	}
	return out
}

// Replay 重新发布已保存过状态的按键，返回发布数量
func (b *Buttons) Replay(ctx context.Context) int {
	n := 0
	for i := 0; i < can.ButtonCount; i++ {
		v, ok, err := b.store.Get(ctx, settings.ButtonKey(i))
		if err != nil || !ok {
			continue
		}
		pressed, err := strconv.ParseBool(v)
		if err != nil {
			continue
		}
		b.send(i, pressed)
		n++
	}
	if n > 0 {
		b.log.Info("replayed button states", zap.Int("count", n))
	}
	return n
}
