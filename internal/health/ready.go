package health

import "sync/atomic"

// Readiness 启动阶段就绪标记：发布端已绑定、消费循环已启动
type Readiness struct {
	publisherReady atomic.Bool
	consumerReady  atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetPublisherReady(v bool) { r.publisherReady.Store(v) }
func (r *Readiness) SetConsumerReady(v bool)  { r.consumerReady.Store(v) }

// Ready 总体就绪：各子系统均为 true
func (r *Readiness) Ready() bool {
	return r.publisherReady.Load() && r.consumerReady.Load()
}
