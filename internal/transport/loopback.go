package transport

import (
	"context"
	"sync"
)

const loopbackInboxSize = 1024

// Loopback 进程内后端，测试与单进程演示使用。
// 与 pub/sub 语义一致：订阅之前发布的消息丢失，慢订阅者的溢出消息被丢弃。
type Loopback struct {
	mu   sync.RWMutex
	subs map[string]map[*loopbackSubscriber]struct{}
}

// NewLoopback 创建进程内总线
func NewLoopback() *Loopback {
	return &Loopback{subs: make(map[string]map[*loopbackSubscriber]struct{})}
}

func (l *Loopback) Kind() string { return KindLoopback }

func (l *Loopback) Bind(_ context.Context, endpoint string) (Publisher, error) {
	return &loopbackPublisher{bus: l, channel: ChannelFor(endpoint)}, nil
}

func (l *Loopback) Connect(_ context.Context, endpoint string) (Subscriber, error) {
	channel := ChannelFor(endpoint)
	sub := &loopbackSubscriber{
		bus:     l,
		channel: channel,
		inbox:   make(chan []byte, loopbackInboxSize),
		done:    make(chan struct{}),
	}
	l.mu.Lock()
	if l.subs[channel] == nil {
		l.subs[channel] = make(map[*loopbackSubscriber]struct{})
	}
	l.subs[channel][sub] = struct{}{}
	l.mu.Unlock()
	return sub, nil
}

// Subscribers 当前订阅数
func (l *Loopback) Subscribers(endpoint string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs[ChannelFor(endpoint)])
}

func (l *Loopback) deliver(channel string, frame []byte) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for sub := range l.subs[channel] {
		// 每个订阅者独立副本
		b := make([]byte, len(frame))
		copy(b, frame)
		select {
		case sub.inbox <- b:
		default:
		}
	}
}

func (l *Loopback) remove(sub *loopbackSubscriber) {
	l.mu.Lock()
	delete(l.subs[sub.channel], sub)
	l.mu.Unlock()
}

type loopbackPublisher struct {
	bus     *Loopback
	channel string
	mu      sync.Mutex
	closed  bool
}

func (p *loopbackPublisher) Publish(frame []byte) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}
	p.bus.deliver(p.channel, frame)
	return nil
}

func (p *loopbackPublisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

type loopbackSubscriber struct {
	bus     *Loopback
	channel string
	inbox   chan []byte
	done    chan struct{}
	once    sync.Once
}

func (s *loopbackSubscriber) Recv() ([]byte, error) {
	select {
	case <-s.done:
		return nil, ErrClosed
	case b := <-s.inbox:
		return b, nil
	}
}

func (s *loopbackSubscriber) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.bus.remove(s)
	})
	return nil
}
