package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/hmi-link/internal/metrics"
	"github.com/taoyao-code/hmi-link/internal/protocol/can"
)

// DefaultShutdownTimeout 等待接收循环自行退出的时长
const DefaultShutdownTimeout = 5 * time.Second

// recvErrorBackoff 接收出错后短暂等待再重试，避免空转
const recvErrorBackoff = 10 * time.Millisecond

// Receiver 独立 goroutine 上的阻塞接收循环。
// 停止标志只在两次 Recv 之间检查；超时未退出时强制关闭订阅端。
type Receiver struct {
	tr       Transport
	endpoint string
	sink     func(can.Frame)
	log      *zap.Logger
	metrics  *metrics.LinkMetrics

	started  atomic.Bool
	stopping atomic.Bool
	running  atomic.Bool
	done     chan struct{}

	mu       sync.Mutex
	sub      Subscriber
	setupErr error
	cancel   context.CancelFunc // 取消仍在进行的连接

	lastFrame atomic.Int64 // unix nano
	received  atomic.Uint64
	discarded atomic.Uint64
}

// NewReceiver 创建接收循环；sink 在接收 goroutine 上被调用（通常是 queue.Enqueue）
func NewReceiver(tr Transport, endpoint string, sink func(can.Frame), log *zap.Logger, m *metrics.LinkMetrics) *Receiver {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewLinkMetrics(nil)
	}
	return &Receiver{
		tr:       tr,
		endpoint: endpoint,
		sink:     sink,
		log:      log.With(zap.String("endpoint", endpoint)),
		metrics:  m,
		done:     make(chan struct{}),
	}
}

// Start 启动接收 goroutine（非阻塞）。连接失败只结束该 goroutine，不重试。
func (r *Receiver) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	go r.loop(ctx)
}

func (r *Receiver) loop(ctx context.Context) {
	defer close(r.done)
	defer func() {
		r.mu.Lock()
		cancel := r.cancel
		r.mu.Unlock()
		cancel()
	}()

	sub, err := r.tr.Connect(ctx, r.endpoint)
	if err != nil && r.stopping.Load() {
		r.log.Info("receive loop stopped before subscriber connected")
		return
	}
	if err != nil {
		r.mu.Lock()
		r.setupErr = err
		r.mu.Unlock()
		r.metrics.SetupFailures.Inc()
		r.log.Error("subscriber connect failed, receive loop exiting", zap.Error(err))
		return
	}

	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()
	defer func() { _ = sub.Close() }()

	r.running.Store(true)
	r.metrics.ReceiverRunning.Set(1)
	defer func() {
		r.running.Store(false)
		r.metrics.ReceiverRunning.Set(0)
	}()
	r.log.Info("receive loop started")

	for !r.stopping.Load() {
		data, err := sub.Recv()
		if err != nil {
			if errors.Is(err, ErrClosed) || r.stopping.Load() {
				break
			}
			r.log.Debug("receive failed", zap.Error(err))
			time.Sleep(recvErrorBackoff)
			continue
		}
		r.handle(data)
	}
	r.log.Info("receive loop stopped")
}

func (r *Receiver) handle(data []byte) {
	frame, err := can.ParseFrame(data)
	if err != nil {
		r.discarded.Add(1)
		r.metrics.FramesDiscarded.WithLabelValues("short_frame").Inc()
		r.log.Warn("received message too small", zap.Int("size", len(data)))
		return
	}
	r.received.Add(1)
	r.lastFrame.Store(time.Now().UnixNano())
	r.metrics.FramesReceived.Inc()
	if r.sink != nil {
		r.sink(frame)
	}
}

// Stop 请求退出并最多等待 timeout；超时后强制关闭订阅端并记录告警。
// 返回值表示是否走了强制路径。
func (r *Receiver) Stop(timeout time.Duration) bool {
	if !r.started.Load() {
		return false
	}
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	r.stopping.Store(true)

	select {
	case <-r.done:
		return false
	case <-time.After(timeout):
	}

	r.log.Warn("receive loop did not exit in time, forcing stop", zap.Duration("timeout", timeout))
	r.metrics.ForcedStops.Inc()
	r.mu.Lock()
	sub, cancel := r.sub, r.cancel
	r.mu.Unlock()
	if sub != nil {
		_ = sub.Close()
	}
	// 仍在连接（对端未监听）时只能取消连接
	if cancel != nil {
		cancel()
	}

	select {
	case <-r.done:
	case <-time.After(timeout):
		r.log.Error("receive loop still blocked after forced close")
	}
	return true
}

// Done 接收 goroutine 退出时关闭
func (r *Receiver) Done() <-chan struct{} { return r.done }

// Running 接收循环是否在运行
func (r *Receiver) Running() bool { return r.running.Load() }

// Err 连接失败原因
func (r *Receiver) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setupErr
}

// Endpoint 订阅端点
func (r *Receiver) Endpoint() string { return r.endpoint }

// LastFrameAt 最近一次收到有效帧的时间
func (r *Receiver) LastFrameAt() time.Time {
	n := r.lastFrame.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// ReceiverStats 接收统计
type ReceiverStats struct {
	Received  uint64
	Discarded uint64
}

// Stats 返回接收统计
func (r *Receiver) Stats() ReceiverStats {
	return ReceiverStats{Received: r.received.Load(), Discarded: r.discarded.Load()}
}
