package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
	"github.com/taoyao-code/hmi-link/internal/settings"
	redisstorage "github.com/taoyao-code/hmi-link/internal/storage/redis"
)

// 设置存储后端
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// RoleSettingsFile 在扩展名前插入角色名，仪表端与测试端不共用同一文件
// data/settings.yaml -> data/settings.dashboard.yaml
func RoleSettingsFile(path, role string) string {
	if role == "" {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + role + ext
}

// RoleKeyPrefix Redis 键前缀追加角色名
func RoleKeyPrefix(prefix, role string) string {
	if role == "" {
		return prefix
	}
	return prefix + role + ":"
}

// NewSettingsStore 按配置创建设置存储
func NewSettingsStore(cfg cfgpkg.SettingsConfig, role string, rdb *redisstorage.Client, logger *zap.Logger) (settings.Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendMemory:
		logger.Warn("settings backend is memory, values will not survive restart")
		return settings.NewMemoryStore(), nil
	case "", BackendFile:
		path := RoleSettingsFile(cfg.File, role)
		store, err := settings.NewFileStore(path)
		if err != nil {
			return nil, fmt.Errorf("open settings file: %w", err)
		}
		logger.Info("settings store ready", zap.String("backend", BackendFile), zap.String("file", store.Path()))
		return store, nil
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("settings backend redis requires a redis client")
		}
		prefix := RoleKeyPrefix(cfg.KeyPrefix, role)
		logger.Info("settings store ready", zap.String("backend", BackendRedis), zap.String("prefix", prefix))
		return settings.NewRedisStore(rdb, prefix), nil
	}
	return nil, fmt.Errorf("unsupported settings backend %q", cfg.Backend)
}
