package bootstrap

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/hmi-link/internal/api"
	"github.com/taoyao-code/hmi-link/internal/app"
	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
	"github.com/taoyao-code/hmi-link/internal/dashboard"
	"github.com/taoyao-code/hmi-link/internal/health"
	"github.com/taoyao-code/hmi-link/internal/logging"
	"github.com/taoyao-code/hmi-link/internal/metrics"
	"github.com/taoyao-code/hmi-link/internal/queue"
	"github.com/taoyao-code/hmi-link/internal/transport"
)

// RunDashboard 仪表端启动流程：订阅遥测、维护仪表状态、发布按键
func RunDashboard(cfg *cfgpkg.Config, log *zap.Logger) error {
	return runDashboard(context.Background(), cfg, log)
}

func runDashboard(parent context.Context, cfg *cfgpkg.Config, log *zap.Logger) error {
	instanceID := app.GenerateInstanceID(roleDashboard)
	log = log.With(zap.String("instance", instanceID))
	log.Info("starting hmi dashboard", zap.String("version", Version))
	link := cfg.Dashboard.Link

	// ========== 阶段1: 初始化基础组件 ==========
	reg, linkm := app.NewMetrics()
	metricsHandler := metrics.Handler(reg)
	ready := health.New()
	log.Info("basic components initialized")

	// ========== 阶段2: Redis 与设置存储 ==========
	redisClient, err := app.NewRedisClient(cfg, log)
	if err != nil {
		log.Error("redis initialization failed", zap.Error(err))
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	store, err := app.NewSettingsStore(cfg.Settings, roleDashboard, redisClient, log)
	if err != nil {
		log.Error("settings initialization failed", zap.Error(err))
		return err
	}

	// ========== 阶段3: 绑定按键发布端（失败直接返回）==========
	tr, err := app.NewTransport(cfg.Transport, instanceID, redisClient, logging.Component(log, "transport"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	pub, err := tr.Bind(ctx, link.Publish)
	if err != nil {
		log.Error("bind button publisher failed", zap.String("endpoint", link.Publish), zap.Error(err))
		return fmt.Errorf("bind %s: %w", link.Publish, err)
	}
	ready.SetPublisherReady(true)
	log.Info("button publisher bound", zap.String("endpoint", link.Publish))

	// ========== 阶段4: 队列、分发器、消费循环 ==========
	q := queue.New()
	q.SetDepthCallback(func(n int) { linkm.QueueDepth.Set(float64(n)) })
	consumerLog := logging.Component(log, "consumer")
	consumer := dashboard.NewConsumer(q, dashboard.NewDispatcher(consumerLog, linkm), store, link.PollInterval, consumerLog, linkm)
	consumer.Restore(ctx, cfg.Dashboard.LastResetDate)
	consumer.Observe(func(f dashboard.Field, s dashboard.State) {
		if ce := consumerLog.Check(zap.DebugLevel, "dashboard field changed"); ce != nil {
			ce.Write(zap.Stringer("field", f), zap.Int("rpm", s.RPM), zap.Float64("engine_hours", s.EngineHours))
		}
	})

	buttons := dashboard.NewButtons(pub, store, logging.Component(log, "buttons"), linkm)
	if cfg.Dashboard.ReplayButtons {
		n := buttons.Replay(ctx)
		log.Info("persisted button states replayed", zap.Int("buttons", n))
	}

	// ========== 阶段5: 启动HTTP服务（非阻塞）==========
	httpSrv := app.NewHTTPServer(cfg.HTTP, cfg.Dashboard.HTTPAddr, cfg.Metrics, metricsHandler, ready.Ready)
	healthAgg := app.NewHealthAggregator(redisClient)
	httpSrv.Register(func(r gin.IRouter) {
		api.RegisterDashboardRoutes(r, consumer, buttons, cfg.HTTP.Auth, logging.Component(log, "api"))
		app.RegisterHealthRoutes(r, healthAgg)
	})
	startHTTP(httpSrv, log)

	// ========== 阶段6: 启动消费循环与接收协程 ==========
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := consumer.Run(ctx); err != nil {
			log.Error("consume loop exited", zap.Error(err))
		}
	}()
	ready.SetConsumerReady(true)
	app.AddConsumerChecker(healthAgg, consumer, q, backlogWarnDepth)

	receiver := transport.NewReceiver(tr, link.Subscribe, q.Enqueue, logging.Component(log, "receiver"), linkm)
	receiver.Start(ctx)
	app.AddReceiverChecker(healthAgg, receiver, link.StaleAfter)
	log.Info("all services ready, waiting for telemetry", zap.String("subscribe", link.Subscribe))

	// ========== 阶段7: 等待关闭信号 ==========
	waitForSignal(ctx, log)
	shutdownLink(log, httpSrv, receiver, link.ShutdownTimeout, cancel, loopDone, pub)

	log.Info("shutdown complete")
	return nil
}
