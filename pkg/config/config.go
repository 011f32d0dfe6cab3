package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var valid = validator.New()

// 采集模式
const (
	ModePerInstance = "per-instance" // 每个实例单独调用 varnishstat -n<instance>
	ModeSingle      = "single"       // 单次调用，实例名由字段前缀推导
)

// 输出目标
const (
	SinkPrometheus = "prometheus"
	SinkCollectd   = "collectd"
	SinkPrint      = "print"
)

// Config 全局配置结构体（聚合所有核心模块）
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server" comment:"HTTP服务配置"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor" comment:"监控采集配置"`
	Varnish VarnishConfig `yaml:"varnish" mapstructure:"varnish" comment:"varnishstat 数据源配置"`
	Sink    SinkConfig    `yaml:"sink" mapstructure:"sink" comment:"指标输出配置"`
	Log     ZapLogConfig  `yaml:"log" mapstructure:"log" comment:"日志配置"`
}

// ServerConfig HTTP服务配置（超时统一为time.Duration，支持"30s"解析）
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr" env:"HTTP_ADDR" validate:"required,hostname_port" comment:"HTTP监听地址（格式：ip:port）"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" env:"HTTP_READ_TIMEOUT" validate:"required,gt=0" comment:"读取超时时间（如30s）"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" env:"HTTP_WRITE_TIMEOUT" validate:"required,gt=0" comment:"写入超时时间（如30s）"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" validate:"required,gt=0" comment:"空闲连接超时时间（如60s）"`
}

// MonitorConfig 监控采集全局配置
type MonitorConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval" env:"MONITOR_INTERVAL" validate:"required,gt=0" comment:"采集间隔（如10s）"`
}

// VarnishConfig varnishstat 调用与实例发现配置
type VarnishConfig struct {
	Command   string          `yaml:"command" mapstructure:"command" validate:"required" comment:"varnishstat 命令路径"`
	Timeout   time.Duration   `yaml:"timeout" mapstructure:"timeout" validate:"required,gt=0" comment:"传给 varnishstat -t 的超时时间"`
	KillGrace time.Duration   `yaml:"kill_grace" mapstructure:"kill_grace" validate:"gte=0" comment:"超时后强制结束子进程的宽限时间，0 表示不强制"`
	Mode      string          `yaml:"mode" mapstructure:"mode" validate:"required,oneof=per-instance single" comment:"采集模式（per-instance/single）"`
	Instances []string        `yaml:"instances" mapstructure:"instances" comment:"静态实例列表，非空时跳过文件系统发现"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery" comment:"实例发现配置"`
}

// DiscoveryConfig 实例发现配置
type DiscoveryConfig struct {
	Glob           string `yaml:"glob" mapstructure:"glob" validate:"required" comment:"标记文件 glob"`
	Pattern        string `yaml:"pattern" mapstructure:"pattern" validate:"required" comment:"从路径提取实例名的正则（第一个捕获组）"`
	RequireRunning bool   `yaml:"require_running" mapstructure:"require_running" comment:"只保留有 varnishd 进程的实例"`
}

// SinkConfig 指标输出配置
type SinkConfig struct {
	Type     string         `yaml:"type" mapstructure:"type" validate:"required,oneof=prometheus collectd print" comment:"输出目标（prometheus/collectd/print）"`
	Collectd CollectdConfig `yaml:"collectd" mapstructure:"collectd" comment:"collectd exec 协议配置"`
}

// CollectdConfig collectd PUTVAL 标识配置
type CollectdConfig struct {
	Hostname string `yaml:"hostname" mapstructure:"hostname" comment:"PUTVAL 中的主机名，空则使用系统主机名"`
}

// ZapLogConfig 日志配置
type ZapLogConfig struct {
	Level     string `yaml:"level" mapstructure:"level" env:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal" comment:"日志级别"`
	Format    string `yaml:"format" mapstructure:"format" env:"LOG_FORMAT" validate:"required,oneof=json console" comment:"日志格式（json/console）"`
	Path      string `yaml:"path" mapstructure:"path" env:"LOG_PATH" validate:"required" comment:"日志存储路径"`
	File      bool   `yaml:"file" mapstructure:"file" env:"LOG_FILE" comment:"是否写入滚动日志文件"`
	Stderr    bool   `yaml:"stderr" mapstructure:"stderr" comment:"控制台日志写到 stderr（collectd 模式下 stdout 被占用）"`
	MaxSize   int    `yaml:"max_size" mapstructure:"max_size" env:"LOG_MAX_SIZE" validate:"required,gt=0" comment:"单个日志文件最大大小（MB）"`
	MaxBackup int    `yaml:"max_backup" mapstructure:"max_backup" env:"LOG_MAX_BACKUP" validate:"gte=0" comment:"日志文件最大备份数"`
	MaxAge    int    `yaml:"max_age" mapstructure:"max_age" env:"LOG_MAX_AGE" validate:"required,gt=0" comment:"日志文件最大保存天数"`
}

// NewDefaultConfig 创建默认配置（所有字段兜底，发现路径对应 varnish 默认工作目录）
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         "0.0.0.0:9131",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Monitor: MonitorConfig{
			Interval: 10 * time.Second,
		},
		Varnish: VarnishConfig{
			Command:   "varnishstat",
			Timeout:   2 * time.Second,
			KillGrace: time.Second,
			Mode:      ModePerInstance,
			Instances: []string{},
			Discovery: DiscoveryConfig{
				Glob:           "/var/lib/varnish/*/_.vsm*",
				Pattern:        `^/var/lib/varnish/([^/]+)/_.*`,
				RequireRunning: false,
			},
		},
		Sink: SinkConfig{
			Type: SinkPrometheus,
		},
		Log: ZapLogConfig{
			Level:     "info",
			Format:    "json",
			Path:      "./logs",
			File:      true,
			Stderr:    false,
			MaxSize:   100,
			MaxBackup: 30,
			MaxAge:    7,
		},
	}
}

// LoadConfigWithCli 支持 time.Duration，(Flags + YAML + ENV)
func LoadConfigWithCli(cmd *cobra.Command) (*Config, error) {
	cfg := NewDefaultConfig()
	v := viper.New()

	// 1. 绑定 Cobra Flags → Viper
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	// 2. 解析配置文件 (--config)，文件不存在时仅使用默认值
	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if cmd.Flags().Changed("config") {
				return nil, fmt.Errorf("read config file %s: %w", configFile, err)
			}
		}
	}

	// 3. 绑定环境变量 ENV -> Viper （VARNISH_MODE -> varnish.mode）
	v.SetEnvPrefix("VARNISHSTAT_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := Decode(v.AllSettings(), cfg); err != nil {
		return nil, err
	}

	// 4. 校验配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Decode 解码反序列化到结构体（支持 time.Duration 和逗号分隔的切片）
func Decode(settings map[string]any, cfg *Config) error {
	decoderConfig := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return fmt.Errorf("new decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate 配置校验
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	// 	1,校验Server服务配置
	if err := c.Server.Validate(); err != nil {
		return err
	}
	// 	2，校验采集配置
	if err := c.Monitor.Validate(); err != nil {
		return err
	}
	// 	3，校验 varnish 数据源配置
	if err := c.Varnish.Validate(); err != nil {
		return err
	}
	// 	4，校验日志配置
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}
