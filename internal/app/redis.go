package app

import (
	"strings"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
	redisstorage "github.com/taoyao-code/hmi-link/internal/storage/redis"
	"github.com/taoyao-code/hmi-link/internal/transport"
)

// NeedsRedis 显式启用，或传输/设置后端选择了 redis
func NeedsRedis(cfg *cfgpkg.Config) bool {
	return cfg.Redis.Enabled ||
		strings.EqualFold(cfg.Transport.Kind, transport.KindRedis) ||
		strings.EqualFold(cfg.Settings.Backend, BackendRedis)
}

// NewRedisClient 创建Redis客户端；不需要时返回 nil
func NewRedisClient(cfg *cfgpkg.Config, logger *zap.Logger) (*redisstorage.Client, error) {
	if !NeedsRedis(cfg) {
		logger.Info("redis is disabled, skipping initialization")
		return nil, nil
	}

	rc := cfg.Redis
	rc.Enabled = true
	client, err := redisstorage.NewClient(rc)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", rc.Addr),
		zap.Int("pool_size", rc.PoolSize))

	return client, nil
}
