package harness

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Pacer 基于令牌桶的发布节奏控制
type Pacer struct {
	limiter    *rate.Limiter
	ratePerSec int
	burst      int
	sent       atomic.Int64
	cancelled  atomic.Int64
}

// NewPacer 创建节奏控制器
// ratePerSec: 每秒发布帧数；burst: 突发容量
func NewPacer(ratePerSec int, burst int) *Pacer {
	if ratePerSec <= 0 {
		ratePerSec = 20
	}
	if burst <= 0 {
		burst = 1
	}
	return &Pacer{
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
		ratePerSec: ratePerSec,
		burst:      burst,
	}
}

// Wait 阻塞直到可以发布下一帧
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		p.cancelled.Add(1)
		return err
	}
	p.sent.Add(1)
	return nil
}

// Stats 统计信息
func (p *Pacer) Stats() PacerStats {
	return PacerStats{
		RatePerSecond:  p.ratePerSec,
		Burst:          p.burst,
		SentTotal:      p.sent.Load(),
		CancelledTotal: p.cancelled.Load(),
	}
}

// PacerStats 节奏控制统计
type PacerStats struct {
	RatePerSecond  int   `json:"rate_per_second"`
	Burst          int   `json:"burst"`
	SentTotal      int64 `json:"sent_total"`
	CancelledTotal int64 `json:"cancelled_total"`
}
