// Package transport 发布/订阅传输适配：发布端绑定本地端点，订阅端连接对端并接收全部消息。
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
	redisstorage "github.com/taoyao-code/hmi-link/internal/storage/redis"
)

// 传输类型
const (
	KindZMQ      = "zmq"
	KindRedis    = "redis"
	KindMQTT     = "mqtt"
	KindLoopback = "loopback"
)

var (
	// ErrClosed 订阅端/发布端已关闭
	ErrClosed = errors.New("transport: closed")
	// ErrUnsupportedKind 未知传输类型
	ErrUnsupportedKind = errors.New("transport: unsupported kind")
)

// Publisher 发布端：发出完整帧，不等待确认、不重试
type Publisher interface {
	Publish(frame []byte) error
	Close() error
}

// Subscriber 订阅端：阻塞接收下一条消息
type Subscriber interface {
	Recv() ([]byte, error)
	Close() error
}

// Transport 传输后端
type Transport interface {
	Bind(ctx context.Context, endpoint string) (Publisher, error)
	Connect(ctx context.Context, endpoint string) (Subscriber, error)
	Kind() string
}

// New 按配置创建传输后端；redis 后端需要已连接的客户端
func New(cfg cfgpkg.TransportConfig, rdb *redisstorage.Client, log *zap.Logger) (Transport, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch strings.ToLower(cfg.Kind) {
	case "", KindZMQ:
		return NewZMQ(cfg.ZMQ, log), nil
	case KindRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis transport requires redis.enabled")
		}
		return NewRedis(rdb), nil
	case KindMQTT:
		return NewMQTT(cfg.MQTT, log), nil
	case KindLoopback:
		return NewLoopback(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, cfg.Kind)
	}
}

// ChannelFor 把 "tcp://host:port" 形式的端点映射为与主机无关的通道名，
// 使 "tcp://*:5555" 与 "tcp://127.0.0.1:5555" 落在同一通道；其他形式原样返回。
func ChannelFor(endpoint string) string {
	i := strings.Index(endpoint, "://")
	if i < 0 {
		return endpoint
	}
	_, port, err := net.SplitHostPort(endpoint[i+3:])
	if err != nil || port == "" {
		return endpoint
	}
	return "hmi/link/" + port
}
