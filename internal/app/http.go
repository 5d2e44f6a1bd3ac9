package app

import (
	"net/http"

	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
	"github.com/taoyao-code/hmi-link/internal/httpserver"
)

// NewHTTPServer 根据配置创建 HTTP 服务器；addr 非空时覆盖 http.addr
func NewHTTPServer(cfg cfgpkg.HTTPConfig, addr string, metricsCfg cfgpkg.MetricsConfig, metricsHandler http.Handler, readyFn func() bool) *httpserver.Server {
	if addr != "" {
		cfg.Addr = addr
	}
	if !metricsCfg.Enable {
		metricsHandler = nil
	}
	return httpserver.New(cfg, metricsCfg.Path, metricsHandler, readyFn)
}
