package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
	redisstorage "github.com/taoyao-code/hmi-link/internal/storage/redis"
	"github.com/taoyao-code/hmi-link/internal/transport"
)

// NewTransport 创建传输后端；MQTT 未配置 clientId 时使用实例ID
func NewTransport(cfg cfgpkg.TransportConfig, instanceID string, rdb *redisstorage.Client, logger *zap.Logger) (transport.Transport, error) {
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = instanceID
	}
	tr, err := transport.New(cfg, rdb, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("transport initialized", zap.String("kind", tr.Kind()))
	return tr, nil
}
