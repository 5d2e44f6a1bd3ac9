// Package settings 跨重启持久化的标量键值设置（发动机小时、按键状态、行程复位标记）。
package settings

import (
	"context"
	"fmt"
	"strconv"
)

// 设置键
const (
	KeyEngineHours   = "EngineHours"
	KeyLastTripHours = "trip.lastHours"
	KeyLastResetDate = "trip.lastResetDate"
)

// ButtonKey 按键状态键
func ButtonKey(index int) string {
	return fmt.Sprintf("buttons.b%d", index)
}

// Store 设置存储端口；值一律以字符串保存
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// GetString 读取字符串，缺失或出错时返回默认值
func GetString(ctx context.Context, s Store, key, def string) string {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return def
	}
	return v
}

// GetFloat 读取浮点数，缺失、出错或格式非法时返回默认值
func GetFloat(ctx context.Context, s Store, key string, def float64) float64 {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// GetBool 读取布尔值
func GetBool(ctx context.Context, s Store, key string, def bool) bool {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// SetFloat 以一位以上精度保存浮点数
func SetFloat(ctx context.Context, s Store, key string, v float64) error {
	return s.Set(ctx, key, strconv.FormatFloat(v, 'f', -1, 64))
}

// SetBool 保存布尔值
func SetBool(ctx context.Context, s Store, key string, v bool) error {
	return s.Set(ctx, key, strconv.FormatBool(v))
}
