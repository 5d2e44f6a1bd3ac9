package health

import (
	"context"
	"fmt"
	"time"

	"github.com/taoyao-code/hmi-link/internal/transport"
)

// ReceiverState 接收循环状态
type ReceiverState interface {
	Running() bool
	Err() error
	Endpoint() string
	LastFrameAt() time.Time
	Stats() transport.ReceiverStats
}

// ReceiverChecker 接收循环检查。连接失败后接收循环不会重试，
// 这里是唯一能看出"已不再有入站帧"的地方。
type ReceiverChecker struct {
	name       string
	receiver   ReceiverState
	staleAfter time.Duration
}

// NewReceiverChecker staleAfter 为 0 时不做陈旧判断
func NewReceiverChecker(name string, receiver ReceiverState, staleAfter time.Duration) *ReceiverChecker {
	return &ReceiverChecker{name: name, receiver: receiver, staleAfter: staleAfter}
}

func (c *ReceiverChecker) Name() string { return c.name }

func (c *ReceiverChecker) Check(_ context.Context) CheckResult {
	start := time.Now()
	stats := c.receiver.Stats()
	details := map[string]any{
		"endpoint":  c.receiver.Endpoint(),
		"received":  stats.Received,
		"discarded": stats.Discarded,
	}
	last := c.receiver.LastFrameAt()
	if !last.IsZero() {
		details["last_frame_at"] = last
	}

	result := CheckResult{Status: StatusHealthy, Message: "ok", Details: details}
	switch {
	case c.receiver.Err() != nil:
		result.Status = StatusUnhealthy
		result.Message = fmt.Sprintf("subscriber setup failed: %v", c.receiver.Err())
	case !c.receiver.Running():
		result.Status = StatusUnhealthy
		result.Message = "receive loop not running"
	case c.staleAfter > 0 && (last.IsZero() || time.Since(last) > c.staleAfter):
		result.Status = StatusDegraded
		result.Message = "no frames received recently"
	}
	result.Latency = time.Since(start)
	return result
}

// ConsumerState 消费循环状态
type ConsumerState interface {
	Running() bool
}

// Depth 队列深度
type Depth interface {
	Len() int
}

// ConsumerChecker 消费循环与交接队列检查
type ConsumerChecker struct {
	name     string
	consumer ConsumerState
	queue    Depth
	maxDepth int
}

// NewConsumerChecker maxDepth 为积压告警阈值，0 表示不检查
func NewConsumerChecker(name string, consumer ConsumerState, queue Depth, maxDepth int) *ConsumerChecker {
	return &ConsumerChecker{name: name, consumer: consumer, queue: queue, maxDepth: maxDepth}
}

func (c *ConsumerChecker) Name() string { return c.name }

func (c *ConsumerChecker) Check(_ context.Context) CheckResult {
	start := time.Now()
	depth := c.queue.Len()
	result := CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]any{"queue_depth": depth},
	}
	switch {
	case !c.consumer.Running():
		result.Status = StatusUnhealthy
		result.Message = "consumer not running"
	case c.maxDepth > 0 && depth > c.maxDepth:
		result.Status = StatusDegraded
		result.Message = "frame backlog growing"
	}
	result.Latency = time.Since(start)
	return result
}
