package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/taoyao-code/hmi-link/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
	"github.com/taoyao-code/hmi-link/internal/logging"
)

func main() {
	fs := pflag.NewFlagSet("harness", pflag.ExitOnError)
	fs.String("config", "", "config file path (env HMI_CONFIG)")
	fs.String("transport.kind", "zmq", "transport backend: zmq|redis|mqtt|loopback")
	fs.String("harness.httpAddr", ":8081", "control API listen address")
	fs.String("harness.scenario", "", "scenario YAML to publish on start")
	fs.Bool("harness.loop", false, "repeat the scenario until shutdown")
	fs.Int("harness.ratePerSec", 20, "scenario frames per second")
	fs.String("logging.level", "info", "log level")
	_ = fs.Parse(os.Args[1:])

	// 1) 加载配置
	cfg, err := cfgpkg.Load("", fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3) 启动
	if err := bootstrap.RunHarness(cfg, logger); err != nil {
		logger.Error("harness exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
