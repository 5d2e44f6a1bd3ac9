package settings

import (
	"context"
	"errors"

	redisstorage "github.com/taoyao-code/hmi-link/internal/storage/redis"
)

// RedisStore 以 "<prefix><key>" 字符串键保存在 Redis 中，不设过期
type RedisStore struct {
	client *redisstorage.Client
	prefix string
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redisstorage.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redisstorage.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}
