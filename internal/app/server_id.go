package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateInstanceID 生成进程实例ID
// 优先使用环境变量HMI_INSTANCE_ID，否则生成UUID
func GenerateInstanceID(role string) string {
	if id := os.Getenv("HMI_INSTANCE_ID"); id != "" {
		return id
	}

	// 格式：{role}-{hostname}-{uuid前8位}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	shortUUID := uuid.New().String()[:8]
	return fmt.Sprintf("%s-%s-%s", role, hostname, shortUUID)
}
