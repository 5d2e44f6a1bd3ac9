// Package harness 测试发布端：跟踪仪表端回传的按键状态，并按场景发布遥测。
package harness

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/hmi-link/internal/protocol/can"
	"github.com/taoyao-code/hmi-link/internal/queue"
)

// ButtonStates 按键状态快照
type ButtonStates struct {
	ISOActive   bool                  `json:"isoActive"`
	CreepActive bool                  `json:"creepActive"`
	Buttons     [can.ButtonCount]bool `json:"buttons"`
	Frames      uint64                `json:"frames"`
}

// ButtonEvent 按键事件回调；ISO 每次收到都回调，其余按键仅在状态变化时回调
type ButtonEvent func(index int, pressed bool)

// Tracker 消费按键帧队列，每个周期最多处理一帧
type Tracker struct {
	q        *queue.FrameQueue
	interval time.Duration
	log      *zap.Logger
	running  atomic.Bool

	mu       sync.RWMutex
	states   ButtonStates
	handlers []ButtonEvent
}

// NewTracker 创建按键跟踪器
func NewTracker(q *queue.FrameQueue, interval time.Duration, log *zap.Logger) *Tracker {
	if interval <= 0 {
		interval = 5 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{q: q, interval: interval, log: log}
}

// OnButton 注册按键事件回调
func (t *Tracker) OnButton(fn ButtonEvent) {
	t.mu.Lock()
	t.handlers = append(t.handlers, fn)
	t.mu.Unlock()
}

// States 当前按键状态
func (t *Tracker) States() ButtonStates {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states
}

// Running 是否在运行
func (t *Tracker) Running() bool { return t.running.Load() }

// Run 阻塞运行，直到 ctx 取消
func (t *Tracker) Run(ctx context.Context) error {
	t.running.Store(true)
	defer t.running.Store(false)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if f, ok := t.q.TryDequeue(); ok {
				t.Handle(f)
			}
		}
	}
}

// Handle 处理一帧；非按键帧只计数
func (t *Tracker) Handle(f can.Frame) {
	kind, index, class := can.Classify(f.ID)

	t.mu.Lock()
	t.states.Frames++
	if kind != can.KindButton || class != can.ClassKnown {
		t.mu.Unlock()
		return
	}
	pressed := can.DecodeBit(f.Data[:])
	changed := t.states.Buttons[index] != pressed
	t.states.Buttons[index] = pressed
	notify := changed
	switch can.Button(index) {
	case can.ButtonISO:
		t.states.ISOActive = pressed
		notify = true
	case can.ButtonCreep:
		t.states.CreepActive = pressed
	}
	handlers := t.handlers
	t.mu.Unlock()

	if changed {
		t.log.Debug("button state updated", zap.Int("index", index), zap.Bool("pressed", pressed))
	}
	if notify {
		for _, h := range handlers {
			h(index, pressed)
		}
	}
}
