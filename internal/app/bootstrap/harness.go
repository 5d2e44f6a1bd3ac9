package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/hmi-link/internal/api"
	"github.com/taoyao-code/hmi-link/internal/app"
	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
	"github.com/taoyao-code/hmi-link/internal/harness"
	"github.com/taoyao-code/hmi-link/internal/health"
	"github.com/taoyao-code/hmi-link/internal/logging"
	"github.com/taoyao-code/hmi-link/internal/metrics"
	"github.com/taoyao-code/hmi-link/internal/publisher"
	"github.com/taoyao-code/hmi-link/internal/queue"
	"github.com/taoyao-code/hmi-link/internal/transport"
)

// RunHarness 测试端启动流程：发布遥测、跟踪仪表端按键、按场景驱动
func RunHarness(cfg *cfgpkg.Config, log *zap.Logger) error {
	return runHarness(context.Background(), cfg, log)
}

func runHarness(parent context.Context, cfg *cfgpkg.Config, log *zap.Logger) error {
	instanceID := app.GenerateInstanceID(roleHarness)
	log = log.With(zap.String("instance", instanceID))
	log.Info("starting hmi harness", zap.String("version", Version))
	hc := cfg.Harness
	link := hc.Link

	// 场景在绑定端点前校验，配置错误不占用端口
	var scenario *harness.Scenario
	if hc.Scenario != "" {
		sc, err := harness.LoadScenario(hc.Scenario)
		if err != nil {
			log.Error("load scenario failed", zap.String("path", hc.Scenario), zap.Error(err))
			return err
		}
		scenario = sc
	}

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
	store, err := app.NewSettingsStore(cfg.Settings, roleHarness, redisClient, log)
	if err != nil {
		log.Error("settings initialization failed", zap.Error(err))
		return err
	}

	// ========== 阶段3: 绑定遥测发布端（失败直接返回）==========
	tr, err := app.NewTransport(cfg.Transport, instanceID, redisClient, logging.Component(log, "transport"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	pub, err := tr.Bind(ctx, link.Publish)
	if err != nil {
		log.Error("bind telemetry publisher failed", zap.String("endpoint", link.Publish), zap.Error(err))
		return fmt.Errorf("bind %s: %w", link.Publish, err)
	}
	tel := publisher.NewTelemetry(ctx, pub, store, logging.Component(log, "telemetry"), linkm)
	ready.SetPublisherReady(true)
	log.Info("telemetry publisher bound", zap.String("endpoint", link.Publish))

	// ========== 阶段4: 按键跟踪 ==========
	q := queue.New()
	q.SetDepthCallback(func(n int) { linkm.QueueDepth.Set(float64(n)) })
	tracker := harness.NewTracker(q, link.PollInterval, logging.Component(log, "tracker"))
	tracker.OnButton(func(index int, pressed bool) {
		log.Info("dashboard button", zap.Int("index", index), zap.Bool("pressed", pressed))
	})

	// ========== 阶段5: 启动HTTP服务（非阻塞）==========
	httpSrv := app.NewHTTPServer(cfg.HTTP, hc.HTTPAddr, cfg.Metrics, metricsHandler, ready.Ready)
	healthAgg := app.NewHealthAggregator(redisClient)
	httpSrv.Register(func(r gin.IRouter) {
		api.RegisterHarnessRoutes(r, tel, tracker, cfg.HTTP.Auth, logging.Component(log, "api"))
		app.RegisterHealthRoutes(r, healthAgg)
	})
	startHTTP(httpSrv, log)

	// ========== 阶段6: 启动跟踪循环、接收协程与场景 ==========
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := tracker.Run(ctx); err != nil {
			log.Error("tracker loop exited", zap.Error(err))
		}
	}()
	ready.SetConsumerReady(true)
	app.AddConsumerChecker(healthAgg, tracker, q, backlogWarnDepth)

	receiver := transport.NewReceiver(tr, link.Subscribe, q.Enqueue, logging.Component(log, "receiver"), linkm)
	receiver.Start(ctx)
	app.AddReceiverChecker(healthAgg, receiver, link.StaleAfter)

	if scenario != nil {
		pacer := harness.NewPacer(hc.RatePerSec, hc.Burst)
		runner := harness.NewRunner(tel, pacer, logging.Component(log, "scenario"))
		go func() {
			res, err := runner.Run(ctx, scenario, hc.Loop)
			ps := pacer.Stats()
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("scenario aborted", zap.Error(err), zap.Int64("paced", ps.SentTotal))
				return
			}
			log.Info("scenario done",
				zap.Int("published", res.Published),
				zap.Int("failed", res.Failed),
				zap.Int("passes", res.Passes),
				zap.Int64("paced", ps.SentTotal),
				zap.Int64("pace_cancelled", ps.CancelledTotal))
		}()
	}
	log.Info("all services ready", zap.String("subscribe", link.Subscribe))

	// ========== 阶段7: 等待关闭信号 ==========
	waitForSignal(ctx, log)
	shutdownLink(log, httpSrv, receiver, link.ShutdownTimeout, cancel, loopDone, pub)

	log.Info("shutdown complete")
	return nil
}
