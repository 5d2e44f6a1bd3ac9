package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	redisstorage "github.com/taoyao-code/hmi-link/internal/storage/redis"
)

// Redis 基于 PUBLISH/SUBSCRIBE 的后端；端点经 ChannelFor 映射为频道
type Redis struct {
	client *redisstorage.Client
}

// NewRedis 创建 Redis 后端
func NewRedis(client *redisstorage.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Kind() string { return KindRedis }

// Bind Redis 发布无需监听，只记录频道
func (r *Redis) Bind(_ context.Context, endpoint string) (Publisher, error) {
	return &redisPublisher{client: r.client, channel: ChannelFor(endpoint)}, nil
}

// Connect 订阅频道并等待订阅确认
func (r *Redis) Connect(ctx context.Context, endpoint string) (Subscriber, error) {
	channel := ChannelFor(endpoint)
	ps := r.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}
	recvCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &redisSubscriber{ps: ps, ctx: recvCtx, cancel: cancel}, nil
}

type redisPublisher struct {
	client  *redisstorage.Client
	channel string
	closed  atomic.Bool
}

func (p *redisPublisher) Publish(frame []byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	return p.client.Publish(context.Background(), p.channel, frame).Err()
}

// Close 不关闭共享客户端
func (p *redisPublisher) Close() error {
	p.closed.Store(true)
	return nil
}

type redisSubscriber struct {
	ps     *redis.PubSub
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	closed atomic.Bool
}

func (s *redisSubscriber) Recv() ([]byte, error) {
	msg, err := s.ps.ReceiveMessage(s.ctx)
	if s.closed.Load() || errors.Is(err, context.Canceled) {
		return nil, ErrClosed
	}
	if err != nil {
		return nil, err
	}
	return []byte(msg.Payload), nil
}

func (s *redisSubscriber) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
		err = s.ps.Close()
	})
	return err
}
