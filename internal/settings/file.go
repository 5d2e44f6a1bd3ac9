package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// FileStore 基于 viper 的 YAML 文件存储；每次 Set 立即落盘
type FileStore struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

// NewFileStore 打开（或新建）设置文件
func NewFileStore(path string) (*FileStore, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// 文件不存在视为空设置，首次 Set 时创建
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat settings %s: %w", path, err)
	}
	return &FileStore{path: path, v: v}, nil
}

// Path 文件路径
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.v.IsSet(key) {
		return "", false, nil
	}
	return f.v.GetString(key), true, nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.v.Set(key, value)
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	if err := f.v.WriteConfigAs(f.path); err != nil {
		return fmt.Errorf("write settings %s: %w", f.path, err)
	}
	return nil
}
