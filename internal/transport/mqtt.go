package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
)

const (
	mqttQoS          = 0
	mqttInboxSize    = 256
	mqttDisconnectMs = 250
)

// MQTT 基于 paho 的后端，QoS 0；端点经 ChannelFor 映射为主题
type MQTT struct {
	cfg cfgpkg.MQTTConfig
	log *zap.Logger
}

// NewMQTT 创建 MQTT 后端
func NewMQTT(cfg cfgpkg.MQTTConfig, log *zap.Logger) *MQTT {
	return &MQTT{cfg: cfg, log: log}
}

func (m *MQTT) Kind() string { return KindMQTT }

func (m *MQTT) connect(role string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(m.cfg.Broker).
		SetClientID(m.cfg.ClientID + "-" + role).
		SetUsername(m.cfg.Username).
		SetPassword(m.cfg.Password).
		SetConnectTimeout(m.cfg.ConnectTimeout).
		SetAutoReconnect(false).
		SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if err := tokenWait(client.Connect(), m.cfg.ConnectTimeout); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", m.cfg.Broker, err)
	}
	return client, nil
}

func tokenWait(tok mqtt.Token, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if !tok.WaitTimeout(timeout) {
		return fmt.Errorf("timeout after %s", timeout)
	}
	return tok.Error()
}

// Bind 建立发布客户端
func (m *MQTT) Bind(_ context.Context, endpoint string) (Publisher, error) {
	client, err := m.connect("pub")
	if err != nil {
		return nil, err
	}
	topic := ChannelFor(endpoint)
	m.log.Info("mqtt publisher ready", zap.String("topic", topic))
	return &mqttPublisher{client: client, topic: topic}, nil
}

// Connect 建立订阅客户端；回调把消息放入收件箱，收件箱满时丢弃
func (m *MQTT) Connect(_ context.Context, endpoint string) (Subscriber, error) {
	client, err := m.connect("sub")
	if err != nil {
		return nil, err
	}
	topic := ChannelFor(endpoint)
	sub := &mqttSubscriber{
		client: client,
		inbox:  make(chan []byte, mqttInboxSize),
		done:   make(chan struct{}),
		log:    m.log,
	}
	if err := tokenWait(client.Subscribe(topic, mqttQoS, sub.onMessage), m.cfg.ConnectTimeout); err != nil {
		client.Disconnect(mqttDisconnectMs)
		return nil, fmt.Errorf("mqtt subscribe %s: %w", topic, err)
	}
	m.log.Info("mqtt subscriber connected", zap.String("topic", topic))
	return sub, nil
}

type mqttPublisher struct {
	client mqtt.Client
	topic  string
	closed atomic.Bool
}

// Publish 不等待 token，QoS 0 下即发即弃
func (p *mqttPublisher) Publish(frame []byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if !p.client.IsConnected() {
		return fmt.Errorf("mqtt publish %s: not connected", p.topic)
	}
	p.client.Publish(p.topic, mqttQoS, false, frame)
	return nil
}

func (p *mqttPublisher) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.client.Disconnect(mqttDisconnectMs)
	}
	return nil
}

type mqttSubscriber struct {
	client mqtt.Client
	inbox  chan []byte
	done   chan struct{}
	once   sync.Once
	log    *zap.Logger
}

func (s *mqttSubscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	select {
	case <-s.done:
	case s.inbox <- msg.Payload():
	default:
		s.log.Warn("mqtt inbox full, dropping message", zap.String("topic", msg.Topic()))
	}
}

func (s *mqttSubscriber) Recv() ([]byte, error) {
	select {
	case <-s.done:
		return nil, ErrClosed
	case b := <-s.inbox:
		return b, nil
	}
}

func (s *mqttSubscriber) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.client.Disconnect(mqttDisconnectMs)
	})
	return nil
}
