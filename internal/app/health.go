package app

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taoyao-code/hmi-link/internal/health"
	redisstorage "github.com/taoyao-code/hmi-link/internal/storage/redis"
)

// NewHealthAggregator 创建健康检查聚合器；链路检查器在组件启动后追加
func NewHealthAggregator(redisClient *redisstorage.Client) *health.Aggregator {
	agg := health.NewAggregator()
	if redisClient != nil {
		agg.AddChecker(health.NewRedisChecker(redisClient))
	}
	return agg
}

// RegisterHealthRoutes 注册健康检查HTTP路由
func RegisterHealthRoutes(r gin.IRoutes, aggregator *health.Aggregator) {
	health.RegisterHTTPRoutes(r, aggregator)
}

// AddReceiverChecker 添加接收循环检查器；staleAfter 为 0 时只看循环是否在跑
func AddReceiverChecker(aggregator *health.Aggregator, receiver health.ReceiverState, staleAfter time.Duration) {
	aggregator.AddChecker(health.NewReceiverChecker("receiver", receiver, staleAfter))
}

// AddConsumerChecker 添加消费循环检查器
func AddConsumerChecker(aggregator *health.Aggregator, consumer health.ConsumerState, queue health.Depth, maxDepth int) {
	aggregator.AddChecker(health.NewConsumerChecker("consumer", consumer, queue, maxDepth))
}
