// Package bootstrap 仪表端与测试端的启动编排
package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/hmi-link/internal/httpserver"
	"github.com/taoyao-code/hmi-link/internal/transport"
)

// Version 构建版本，由 -ldflags 注入
var Version = "dev"

const (
	roleDashboard = "dashboard"
	roleHarness   = "harness"

	// httpShutdownTimeout HTTP 优雅关闭时限
	httpShutdownTimeout = 10 * time.Second
	// backlogWarnDepth 队列积压超过该值时健康检查降级
	backlogWarnDepth = 1000
)

// waitForSignal 阻塞直到收到 SIGINT/SIGTERM 或 ctx 结束
func waitForSignal(ctx context.Context, log *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case s := <-sigCh:
		log.Info("received shutdown signal, gracefully shutting down...", zap.String("signal", s.String()))
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}
}

// startHTTP 非阻塞启动 HTTP 服务
func startHTTP(srv *httpserver.Server, log *zap.Logger) {
	go func() {
		if err := srv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()
	log.Info("http server started", zap.String("addr", srv.Addr()))
}

// shutdownLink 按顺序关闭：HTTP、接收协程、消费循环、发布端
func shutdownLink(log *zap.Logger, httpSrv *httpserver.Server, receiver *transport.Receiver, receiverTimeout time.Duration, cancel context.CancelFunc, loopDone <-chan struct{}, pub transport.Publisher) {
	ctx, cancelHTTP := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancelHTTP()

	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Warn("http server shutdown error", zap.Error(err))
	}
	log.Info("http server stopped")

	if receiverTimeout <= 0 {
		receiverTimeout = transport.DefaultShutdownTimeout
	}
	if forced := receiver.Stop(receiverTimeout); forced {
		log.Warn("receiver stopped forcibly")
	} else {
		log.Info("receiver stopped")
	}

	cancel()
	select {
	case <-loopDone:
		log.Info("consume loop stopped")
	case <-ctx.Done():
		log.Warn("consume loop did not stop before deadline")
	}

	if err := pub.Close(); err != nil {
		log.Warn("publisher close error", zap.Error(err))
	}
	log.Info("publisher closed")
}
