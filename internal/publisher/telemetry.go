// Package publisher 发布端命令编码：把车辆状态编码为帧并按策略发出。
package publisher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/taoyao-code/hmi-link/internal/metrics"
	"github.com/taoyao-code/hmi-link/internal/protocol/can"
	"github.com/taoyao-code/hmi-link/internal/settings"
	"github.com/taoyao-code/hmi-link/internal/transport"
)

// ErrEngineHoursBackward 发动机小时不允许回退
var ErrEngineHoursBackward = errors.New("publisher: engine hours must not decrease")

// Telemetry 遥测发布器。发动机小时单调不减，接受的值先持久化再发送。
type Telemetry struct {
	pub     transport.Publisher
	store   settings.Store
	log     *zap.Logger
	metrics *metrics.LinkMetrics

	mu          sync.Mutex
	engineHours float64
}

// NewTelemetry 创建发布器并从设置中载入发动机小时
func NewTelemetry(ctx context.Context, pub transport.Publisher, store settings.Store, log *zap.Logger, m *metrics.LinkMetrics) *Telemetry {
	if store == nil {
		store = settings.NewMemoryStore()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewLinkMetrics(nil)
	}
	t := &Telemetry{pub: pub, store: store, log: log, metrics: m}
	t.engineHours = can.ClampEngineHours(settings.GetFloat(ctx, store, settings.KeyEngineHours, 0))
	log.Info("engine hours loaded", zap.Float64("hours", t.engineHours))
	return t
}

// EngineHours 当前持有的发动机小时
func (t *Telemetry) EngineHours() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engineHours
}

func (t *Telemetry) send(kind can.Kind, f can.Frame) error {
	if err := t.pub.Publish(f.Bytes()); err != nil {
		t.metrics.PublishErrors.Inc()
		t.log.Error("publish failed", zap.String("kind", kind.String()), zap.Stringer("frame", f), zap.Error(err))
		return err
	}
	t.metrics.FramesPublished.WithLabelValues(kind.String()).Inc()
	return nil
}

func (t *Telemetry) checkIndex(kind can.Kind, index int) error {
	if _, err := can.IDFor(kind, index); err != nil {
		t.metrics.PublishRejected.WithLabelValues("invalid_index").Inc()
		return err
	}
	return nil
}

// PublishRPM 发布转速，截断为 16 位
func (t *Telemetry) PublishRPM(rpm int) error {
	return t.send(can.KindRPM, can.EncodeRPM(rpm))
}

// PublishTelltale 发布指示灯开关
func (t *Telemetry) PublishTelltale(index int, on bool) error {
	if err := t.checkIndex(can.KindTelltale, index); err != nil {
		return err
	}
	return t.send(can.KindTelltale, can.EncodeTelltale(index, on))
}

// PublishGauge 发布仪表百分比，先饱和到 [0,100]
func (t *Telemetry) PublishGauge(index int, percent int) error {
	if err := t.checkIndex(can.KindGauge, index); err != nil {
		return err
	}
	return t.send(can.KindGauge, can.EncodeGauge(index, can.ClampPercent(percent)))
}

// PublishEngineHours 发布发动机小时。小于当前值的请求被拒绝（不发帧、不改状态）；
// 接受的值上限 99999.9，先持久化再发送。
func (t *Telemetry) PublishEngineHours(ctx context.Context, hours float64) error {
	t.mu.Lock()
	if math.IsNaN(hours) || hours < t.engineHours {
		current := t.engineHours
		t.mu.Unlock()
		t.metrics.PublishRejected.WithLabelValues("engine_hours_backward").Inc()
		t.log.Warn("engine hours rejected, value would decrease",
			zap.Float64("requested", hours), zap.Float64("current", current))
		return fmt.Errorf("%w: %.1f < %.1f", ErrEngineHoursBackward, hours, current)
	}
	t.engineHours = can.ClampEngineHours(hours)
	accepted := t.engineHours
	t.mu.Unlock()

	t.persist(ctx, accepted)
	return t.send(can.KindEngineHours, can.EncodeEngineHours(accepted))
}

// ResetEngineHours 无条件归零、持久化并发送零值帧，不做单调校验
func (t *Telemetry) ResetEngineHours(ctx context.Context) error {
	t.mu.Lock()
	t.engineHours = 0
	t.mu.Unlock()

	t.persist(ctx, 0)
	t.log.Info("engine hours reset")
	return t.send(can.KindEngineHours, can.EncodeEngineHours(0))
}

func (t *Telemetry) persist(ctx context.Context, hours float64) {
	if err := settings.SetFloat(ctx, t.store, settings.KeyEngineHours, hours); err != nil {
		t.log.Warn("persist engine hours failed", zap.Float64("hours", hours), zap.Error(err))
	}
}

// PublishPopup 发布弹窗代码
func (t *Telemetry) PublishPopup(code int) error {
	return t.send(can.KindPopup, can.EncodePopup(code))
}

// PublishFuelRate 发布燃油速率，截断为 u16
func (t *Telemetry) PublishFuelRate(rate float64) error {
	return t.send(can.KindFuelRate, can.EncodeFuelRate(rate))
}

// PublishDefRate 发布 DEF 速率，截断为 u16
func (t *Telemetry) PublishDefRate(rate float64) error {
	return t.send(can.KindDefRate, can.EncodeDefRate(rate))
}

// PublishAvgEngineLoad 发布平均负载，先饱和到 [0,100]
func (t *Telemetry) PublishAvgEngineLoad(percent int) error {
	return t.send(can.KindAvgEngineLoad, can.EncodeAvgEngineLoad(can.ClampPercent(percent)))
}

// Publish 按读数类别分派到对应的发布操作
func (t *Telemetry) Publish(ctx context.Context, r can.Reading) error {
	switch r.Kind {
	case can.KindRPM:
		return t.PublishRPM(int(r.Value))
	case can.KindTelltale:
		return t.PublishTelltale(r.Index, r.On())
	case can.KindGauge:
		return t.PublishGauge(r.Index, int(r.Value))
	case can.KindEngineHours:
		return t.PublishEngineHours(ctx, r.Value)
	case can.KindPopup:
		return t.PublishPopup(int(r.Value))
	case can.KindFuelRate:
		return t.PublishFuelRate(r.Value)
	case can.KindDefRate:
		return t.PublishDefRate(r.Value)
	case can.KindAvgEngineLoad:
		return t.PublishAvgEngineLoad(int(r.Value))
	default:
		return fmt.Errorf("publisher: %s frames are not published by telemetry", r.Kind)
	}
}
