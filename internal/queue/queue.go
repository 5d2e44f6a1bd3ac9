// Package queue 接收循环与消费端之间的帧交接队列。
package queue

import (
	"sync"

	"github.com/gammazero/deque"

	"github.com/taoyao-code/hmi-link/internal/protocol/can"
)

// FrameQueue 无界 FIFO；入队与出队由同一把互斥锁保护。
// 不做背压：消费端变慢时内存增长，而不是丢帧或阻塞生产端。
type FrameQueue struct {
	mu     sync.Mutex
	frames deque.Deque[can.Frame]

	// 可选指标回调（队列深度）
	onDepth func(n int)
}

// New 创建队列
func New() *FrameQueue {
	return &FrameQueue{}
}

// SetDepthCallback 设置深度变化回调，在锁外调用
func (q *FrameQueue) SetDepthCallback(fn func(n int)) { q.onDepth = fn }

// Enqueue 追加到队尾，O(1)
func (q *FrameQueue) Enqueue(f can.Frame) {
	q.mu.Lock()
	q.frames.PushBack(f)
	n := q.frames.Len()
	q.mu.Unlock()

	if q.onDepth != nil {
		q.onDepth(n)
	}
}

// TryDequeue 取出队首；队列为空时返回 false，不阻塞
func (q *FrameQueue) TryDequeue() (can.Frame, bool) {
	q.mu.Lock()
	if q.frames.Len() == 0 {
		q.mu.Unlock()
		return can.Frame{}, false
	}
	f := q.frames.PopFront()
	n := q.frames.Len()
	q.mu.Unlock()

	if q.onDepth != nil {
		q.onDepth(n)
	}
	return f, true
}

// Len 当前深度
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.frames.Len()
}
