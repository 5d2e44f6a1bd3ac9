package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/hmi-link/internal/metrics"
	"github.com/taoyao-code/hmi-link/internal/protocol/can"
	"github.com/taoyao-code/hmi-link/internal/queue"
	"github.com/taoyao-code/hmi-link/internal/settings"
)

// DefaultPollInterval 队列轮询周期
const DefaultPollInterval = 5 * time.Millisecond

// ResetDateLayout 复位日期格式
const ResetDateLayout = "01/02/2006"

// ErrConsumerStopped 消费循环已退出
var ErrConsumerStopped = errors.New("dashboard: consumer stopped")

// Observer 字段变更回调，每个变更字段调用一次；在消费 goroutine 上执行
type Observer func(field Field, snapshot State)

// RawObserver 原始帧回调，每个出队的帧调用一次
type RawObserver func(frame can.Frame)

type action struct {
	fn   func(d *Dispatcher) Changes
	done chan Changes
}

// Consumer 消费端唯一执行上下文：周期性执行待处理的变更操作、
// 每个周期最多出队一帧并分发，然后发布不可变快照。
type Consumer struct {
	q        *queue.FrameQueue
	d        *Dispatcher
	store    settings.Store
	interval time.Duration
	log      *zap.Logger
	metrics  *metrics.LinkMetrics

	actions chan action
	stopped chan struct{}
	running atomic.Bool

	mu        sync.RWMutex
	observers []Observer
	raw       []RawObserver

	snap atomic.Pointer[State]
}

// NewConsumer 创建消费循环；store 为 nil 时不持久化复位标记
func NewConsumer(q *queue.FrameQueue, d *Dispatcher, store settings.Store, interval time.Duration, log *zap.Logger, m *metrics.LinkMetrics) *Consumer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewLinkMetrics(nil)
	}
	if store == nil {
		store = settings.NewMemoryStore()
	}
	c := &Consumer{
		q:        q,
		d:        d,
		store:    store,
		interval: interval,
		log:      log,
		metrics:  m,
		actions:  make(chan action, 16),
		stopped:  make(chan struct{}),
	}
	c.publish()
	return c
}

// Observe 注册字段变更回调
func (c *Consumer) Observe(o Observer) {
	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.mu.Unlock()
}

// ObserveRaw 注册原始帧回调
func (c *Consumer) ObserveRaw(o RawObserver) {
	c.mu.Lock()
	c.raw = append(c.raw, o)
	c.mu.Unlock()
}

// Snapshot 最近发布的状态快照，任意 goroutine 可读
func (c *Consumer) Snapshot() State { return *c.snap.Load() }

// Running 消费循环是否在运行
func (c *Consumer) Running() bool { return c.running.Load() }

// Restore 从设置中恢复复位标记与日期；须在 Run 之前调用
func (c *Consumer) Restore(ctx context.Context, defaultDate string) {
	if defaultDate == "" {
		defaultDate = DefaultLastResetDate
	}
	last := settings.GetFloat(ctx, c.store, settings.KeyLastTripHours, 0)
	date := settings.GetString(ctx, c.store, settings.KeyLastResetDate, defaultDate)
	c.d.SetLastTripHours(last)
	c.d.SetLastResetDate(date)
	c.publish()
	c.log.Info("trip marker restored", zap.Float64("last_trip_hours", last), zap.String("last_reset_date", date))
}

// Run 阻塞运行消费循环，直到 ctx 取消
func (c *Consumer) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("dashboard: consumer already running")
	}
	defer func() {
		c.running.Store(false)
		close(c.stopped)
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	c.log.Info("consumer started", zap.Duration("interval", c.interval))

	for {
		select {
		case <-ctx.Done():
			c.log.Info("consumer stopped", zap.Int("pending_frames", c.q.Len()))
			return nil
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick 执行一个轮询周期，返回是否处理了帧。只能由单一 goroutine 调用。
func (c *Consumer) Tick() bool {
	var ch Changes
drain:
	for {
		select {
		case a := <-c.actions:
			got := a.fn(c.d)
			ch |= got
			a.done <- got
		default:
			break drain
		}
	}

	frame, ok := c.q.TryDequeue()
	if ok {
		ch |= c.d.Dispatch(frame.ID, frame.Payload())
		c.notifyRaw(frame)
	}

	if !ch.Empty() {
		c.publish()
		c.notify(ch)
	}
	return ok
}

func (c *Consumer) publish() {
	s := c.d.State()
	c.snap.Store(&s)
}

func (c *Consumer) notify(ch Changes) {
	snap := c.Snapshot()
	c.mu.RLock()
	observers := c.observers
	c.mu.RUnlock()
	for _, f := range ch.Fields() {
		c.metrics.StateChanges.WithLabelValues(f.String()).Inc()
		for _, o := range observers {
			o(f, snap)
		}
	}
}

func (c *Consumer) notifyRaw(frame can.Frame) {
	c.mu.RLock()
	raw := c.raw
	c.mu.RUnlock()
	for _, o := range raw {
		o(frame)
	}
}

// Do 把变更操作交给消费 goroutine 执行并等待结果
func (c *Consumer) Do(ctx context.Context, fn func(d *Dispatcher) Changes) (Changes, error) {
	a := action{fn: fn, done: make(chan Changes, 1)}
	select {
	case c.actions <- a:
	case <-c.stopped:
		return 0, ErrConsumerStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case ch := <-a.done:
		return ch, nil
	case <-c.stopped:
		return 0, ErrConsumerStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// SetCreepActive 覆盖蠕行模式状态
func (c *Consumer) SetCreepActive(ctx context.Context, active bool) error {
	_, err := c.Do(ctx, func(d *Dispatcher) Changes { return d.SetCreepActive(active) })
	return err
}

// SetFuelUsage 设置油耗累计值
func (c *Consumer) SetFuelUsage(ctx context.Context, v float64) error {
	_, err := c.Do(ctx, func(d *Dispatcher) Changes { return d.SetFuelUsage(v) })
	return err
}

// SetLastResetDate 设置并持久化复位日期
func (c *Consumer) SetLastResetDate(ctx context.Context, date string) error {
	if _, err := c.Do(ctx, func(d *Dispatcher) Changes { return d.SetLastResetDate(date) }); err != nil {
		return err
	}
	return c.store.Set(ctx, settings.KeyLastResetDate, date)
}

// SetLastTripHours 设置并持久化复位标记
func (c *Consumer) SetLastTripHours(ctx context.Context, hours float64) error {
	var applied float64
	_, err := c.Do(ctx, func(d *Dispatcher) Changes {
		ch := d.SetLastTripHours(hours)
		applied = d.State().LastTripHours
		return ch
	})
	if err != nil {
		return err
	}
	return settings.SetFloat(ctx, c.store, settings.KeyLastTripHours, applied)
}

// ResetTrip 以当前发动机小时复位行程；date 为空时取当天日期
func (c *Consumer) ResetTrip(ctx context.Context, date string) (State, error) {
	if date == "" {
		date = time.Now().Format(ResetDateLayout)
	}
	var s State
	_, err := c.Do(ctx, func(d *Dispatcher) Changes {
		ch := d.ResetTrip(date)
		s = d.State()
		return ch
	})
	if err != nil {
		return State{}, err
	}
	if err := settings.SetFloat(ctx, c.store, settings.KeyLastTripHours, s.LastTripHours); err != nil {
		return s, err
	}
	if err := c.store.Set(ctx, settings.KeyLastResetDate, s.LastResetDate); err != nil {
		return s, err
	}
	c.log.Info("trip reset", zap.Float64("marker", s.LastTripHours), zap.String("date", s.LastResetDate))
	return s, nil
}
