package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr         string         `mapstructure:"addr"`
	ReadTimeout  time.Duration  `mapstructure:"readTimeout"`
	WriteTimeout time.Duration  `mapstructure:"writeTimeout"`
	Auth         HTTPAuthConfig `mapstructure:"auth"`
}

// HTTPAuthConfig 控制类接口的 API Key 认证
type HTTPAuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"apiKeys"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// RedisConfig Redis 连接配置（Redis 传输与 Redis 设置存储共用）
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"poolSize"`
	MinIdleConns int           `mapstructure:"minIdleConns"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// ZMQConfig ZeroMQ 传输参数
type ZMQConfig struct {
	// DialRetries -1 表示一直重试直到对端监听
	DialRetries       int           `mapstructure:"dialRetries"`
	DialRetryInterval time.Duration `mapstructure:"dialRetryInterval"`
}

// MQTTConfig MQTT 传输参数
type MQTTConfig struct {
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"clientId"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
}

// TransportConfig 传输后端选择与后端参数
type TransportConfig struct {
	Kind string     `mapstructure:"kind"` // zmq | redis | mqtt | loopback
	ZMQ  ZMQConfig  `mapstructure:"zmq"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
}

// LinkConfig 一侧进程的端点：publish 由本进程绑定，subscribe 由本进程连接。
// zmq 直接使用 tcp 端点；redis/mqtt 经 transport.ChannelFor 映射为频道/主题。
type LinkConfig struct {
	Publish         string        `mapstructure:"publish"`
	Subscribe       string        `mapstructure:"subscribe"`
	PollInterval    time.Duration `mapstructure:"pollInterval"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	// StaleAfter 超过该时长无入站帧时健康检查降级；0 不判断
	StaleAfter time.Duration `mapstructure:"staleAfter"`
}

// SettingsConfig 持久化设置存储
type SettingsConfig struct {
	Backend   string `mapstructure:"backend"` // memory | file | redis
	File      string `mapstructure:"file"`
	KeyPrefix string `mapstructure:"keyPrefix"`
}

// DashboardConfig 仪表端
type DashboardConfig struct {
	HTTPAddr      string     `mapstructure:"httpAddr"`
	Link          LinkConfig `mapstructure:"link"`
	LastResetDate string     `mapstructure:"lastResetDate"`
	ReplayButtons bool       `mapstructure:"replayButtons"`
}

// HarnessConfig 测试发布端
type HarnessConfig struct {
	HTTPAddr   string     `mapstructure:"httpAddr"`
	Link       LinkConfig `mapstructure:"link"`
	Scenario   string     `mapstructure:"scenario"`
	RatePerSec int        `mapstructure:"ratePerSec"`
	Burst      int        `mapstructure:"burst"`
	Loop       bool       `mapstructure:"loop"`
}

// Config 顶层配置结构
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Transport TransportConfig `mapstructure:"transport"`
	Settings  SettingsConfig  `mapstructure:"settings"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Harness   HarnessConfig   `mapstructure:"harness"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 HMI_CONFIG 读取；否则回退到 configs/example.yaml。
// flags 非空时，命令行参数优先于文件与环境变量。
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 默认值
	setDefaults(v)

	// 环境变量覆盖：前缀 HMI_，并将点号替换为下划线
	v.SetEnvPrefix("HMI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		// 首次运行允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "hmi-link")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")
	v.SetDefault("http.auth.enabled", false)
	v.SetDefault("dashboard.httpAddr", ":8080")
	v.SetDefault("harness.httpAddr", ":8081")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/hmi-link.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 2)
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")

	v.SetDefault("transport.kind", "zmq")
	v.SetDefault("transport.zmq.dialRetries", -1)
	v.SetDefault("transport.zmq.dialRetryInterval", "250ms")
	v.SetDefault("transport.mqtt.broker", "tcp://127.0.0.1:1883")
	v.SetDefault("transport.mqtt.clientId", "")
	v.SetDefault("transport.mqtt.connectTimeout", "5s")

	v.SetDefault("settings.backend", "file")
	v.SetDefault("settings.file", "data/settings.yaml")
	v.SetDefault("settings.keyPrefix", "hmi:settings:")

	v.SetDefault("dashboard.link.publish", "tcp://*:5556")
	v.SetDefault("dashboard.link.subscribe", "tcp://127.0.0.1:5555")
	v.SetDefault("dashboard.link.pollInterval", "5ms")
	v.SetDefault("dashboard.link.shutdownTimeout", "5s")
	v.SetDefault("dashboard.link.staleAfter", "30s")
	v.SetDefault("dashboard.lastResetDate", "11/05/1998")
	v.SetDefault("dashboard.replayButtons", true)

	v.SetDefault("harness.link.publish", "tcp://*:5555")
	v.SetDefault("harness.link.subscribe", "tcp://127.0.0.1:5556")
	v.SetDefault("harness.link.pollInterval", "5ms")
	v.SetDefault("harness.link.shutdownTimeout", "5s")
	v.SetDefault("harness.link.staleAfter", "0s")
	v.SetDefault("harness.scenario", "")
	v.SetDefault("harness.ratePerSec", 20)
	v.SetDefault("harness.burst", 1)
	v.SetDefault("harness.loop", false)
}
