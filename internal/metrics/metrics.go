package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// LinkMetrics 帧链路指标
type LinkMetrics struct {
	FramesReceived   prometheus.Counter     // 通过长度校验并入队的帧
	FramesDiscarded  *prometheus.CounterVec // labels: reason=short_frame|short_payload|invalid_index
	FramesDispatched *prometheus.CounterVec // labels: kind
	QueueDepth       prometheus.Gauge       // 交接队列深度
	StateChanges     *prometheus.CounterVec // labels: field
	FramesPublished  *prometheus.CounterVec // labels: kind
	PublishRejected  *prometheus.CounterVec // labels: reason
	PublishErrors    prometheus.Counter
	SetupFailures    prometheus.Counter // 传输建立失败（接收协程退出）
	ReceiverRunning  prometheus.Gauge
	ForcedStops      prometheus.Counter // 超时后强制关闭接收协程
}

// NewLinkMetrics 注册并返回链路指标；reg 为 nil 时只创建不注册
func NewLinkMetrics(reg prometheus.Registerer) *LinkMetrics {
	m := &LinkMetrics{
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hmi_frames_received_total",
			Help: "Frames accepted by the receive loop.",
		}),
		FramesDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hmi_frames_discarded_total",
			Help: "Frames discarded before reaching state.",
		}, []string{"reason"}),
		FramesDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hmi_frames_dispatched_total",
			Help: "Frames decoded by the dispatcher by kind.",
		}, []string{"kind"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hmi_frame_queue_depth",
			Help: "Frames waiting between receive loop and consumer.",
		}),
		StateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hmi_state_changes_total",
			Help: "Change notifications emitted by field.",
		}, []string{"field"}),
		FramesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hmi_frames_published_total",
			Help: "Frames handed to the transport by kind.",
		}, []string{"kind"}),
		PublishRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hmi_publish_rejected_total",
			Help: "Publish requests rejected by policy.",
		}, []string{"reason"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hmi_publish_errors_total",
			Help: "Transport errors on publish.",
		}),
		SetupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hmi_transport_setup_failures_total",
			Help: "Subscriber connect failures that ended the receive loop.",
		}),
		ReceiverRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hmi_receiver_running",
			Help: "1 while the receive loop is running.",
		}),
		ForcedStops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hmi_receiver_forced_stops_total",
			Help: "Receive loops force-closed after the shutdown timeout.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.FramesReceived, m.FramesDiscarded, m.FramesDispatched, m.QueueDepth,
			m.StateChanges, m.FramesPublished, m.PublishRejected, m.PublishErrors,
			m.SetupFailures, m.ReceiverRunning, m.ForcedStops)
	}
	return m
}
