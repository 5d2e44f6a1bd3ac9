package transport

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-zeromq/zmq4"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
)

// ZMQ PUB/SUB 后端，与现网 ZeroMQ 对端线格式兼容
type ZMQ struct {
	cfg cfgpkg.ZMQConfig
	log *zap.Logger
}

// NewZMQ 创建 ZeroMQ 后端
func NewZMQ(cfg cfgpkg.ZMQConfig, log *zap.Logger) *ZMQ {
	return &ZMQ{cfg: cfg, log: log}
}

func (z *ZMQ) Kind() string { return KindZMQ }

// dialOptions 只用于 SUB：对端重启后自动重连，dialRetries 为 -1 时一直等待对端监听。
// PUB 不能开启自动重连，zmq4 会在订阅端断开后拨向自身的监听端点。
func (z *ZMQ) dialOptions() []zmq4.Option {
	opts := []zmq4.Option{zmq4.WithAutomaticReconnect(true)}
	if z.cfg.DialRetryInterval > 0 {
		opts = append(opts, zmq4.WithDialerRetry(z.cfg.DialRetryInterval))
	}
	if z.cfg.DialRetries != 0 {
		opts = append(opts, zmq4.WithDialerMaxRetries(z.cfg.DialRetries))
	}
	return opts
}

// Bind 创建 PUB 套接字并监听端点
func (z *ZMQ) Bind(ctx context.Context, endpoint string) (Publisher, error) {
	sock := zmq4.NewPub(context.WithoutCancel(ctx))
	if err := sock.Listen(endpoint); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("zmq bind %s: %w", endpoint, err)
	}
	z.log.Info("zmq publisher bound", zap.String("endpoint", endpoint))
	return &zmqPublisher{sock: sock}, nil
}

// Connect 创建 SUB 套接字、连接端点并订阅全部消息。
// 对端未监听时按配置重试；ctx 取消时放弃连接并关闭套接字。
// 端点格式错误等立即失败。
func (z *ZMQ) Connect(ctx context.Context, endpoint string) (Subscriber, error) {
	sock := zmq4.NewSub(ctx, z.dialOptions()...)
	if err := sock.Dial(endpoint); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("zmq connect %s: %w", endpoint, err)
	}
	if err := sock.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("zmq subscribe %s: %w", endpoint, err)
	}
	z.log.Info("zmq subscriber connected", zap.String("endpoint", endpoint))
	return &zmqSubscriber{sock: sock}, nil
}

type zmqPublisher struct {
	sock   zmq4.Socket
	closed atomic.Bool
}

func (p *zmqPublisher) Publish(frame []byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	return p.sock.Send(zmq4.NewMsg(frame))
}

func (p *zmqPublisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.sock.Close()
}

type zmqSubscriber struct {
	sock   zmq4.Socket
	closed atomic.Bool
}

func (s *zmqSubscriber) Recv() ([]byte, error) {
	msg, err := s.sock.Recv()
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err != nil {
		return nil, err
	}
	if len(msg.Frames) == 0 {
		return nil, nil
	}
	return msg.Frames[0], nil
}

func (s *zmqSubscriber) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.sock.Close()
}
