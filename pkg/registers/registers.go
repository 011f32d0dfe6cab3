package registers

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/varnishstat-agent/pkg/collector"
	"github.com/varnishstat-agent/pkg/config"
	"github.com/varnishstat-agent/pkg/logger"
	"github.com/varnishstat-agent/pkg/metrics"
	"github.com/varnishstat-agent/pkg/sink"
	"github.com/varnishstat-agent/pkg/varnish"
)

type Module struct {
	Enabled bool
	Name    string
	NewFunc func() (Collector, error)
}

// Options InitPromRegistry 的可选依赖
type Options struct {
	// EnableProcess 注册进程指标（process_*）
	EnableProcess bool
	// Out print/collectd 输出流
	Out io.Writer
	// Fs 实例发现使用的文件系统，nil 时为本地文件系统
	Fs afero.Fs
}

// InitPromRegistry 返回值
// promReg	*prometheus.Registry	Prometheus 指标注册器，prometheus 输出时由 /metrics 暴露
// agent	*AgentImpl	            采集器管理器，调用方决定 Start（守护进程）或 RunOnce（standalone）
// error	                        配置无法构建输出或采集器时返回
func InitPromRegistry(cfg *config.Config, opts Options) (*prometheus.Registry, *AgentImpl, error) {
	// 初始化Prometheus指标注册器（不注册Go指标）
	promReg := prometheus.NewRegistry()
	if opts.EnableProcess {
		promReg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	// 初始化工厂包装成自己的 Registry
	metricFactory := metrics.NewMetricFactory(metrics.NewPromRegistry(promReg))

	out, err := sink.New(cfg, opts.Out, metricFactory)
	if err != nil {
		return nil, nil, err
	}

	agent := NewRegistry(cfg.Monitor.Interval)

	// 注册采集器（统一入口，扩展仅需添加注册代码）
	registered, err := RegisterCollectors(agent, cfg, metricFactory, out, opts.Fs)
	if err != nil {
		logger.Error("failed to register collectors", zap.Error(err))
		return nil, nil, err
	}
	logger.Debug("registry initialized",
		zap.Int("collectors", len(registered)),
		zap.String("sink", cfg.Sink.Type),
		zap.Duration("interval", cfg.Monitor.Interval))

	return promReg, agent, nil
}

// RegisterCollectors 采集器注册统一入口
// 新增采集器只需在 modules 列表添加一条，不必写重复的 if/else。
func RegisterCollectors(agent Agent, cfg *config.Config, metricFactory *metrics.MetricFactory, out varnish.MetricSink, fs afero.Fs) ([]Collector, error) {
	modu := []Module{
		{
			Enabled: true,
			Name:    varnish.PluginName,
			NewFunc: func() (Collector, error) {
				poller, err := varnish.NewFromConfig(cfg.Varnish, fs, out, logger.GetLogger())
				if err != nil {
					return nil, err
				}
				return collector.NewVarnishCollector(&cfg.Varnish, poller, out, metricFactory), nil
			},
		},
	}

	var registered []Collector
	for _, m := range modu {
		if !m.Enabled {
			logger.Debug("collector disabled", zap.String("name", m.Name))
			continue
		}
		c, err := m.NewFunc()
		if err != nil {
			return nil, fmt.Errorf("build collector %s: %w", m.Name, err)
		}
		agent.Register(c)
		registered = append(registered, c)
		logger.Debug("registered collector", zap.String("name", m.Name))
	}
	if len(registered) == 0 {
		return nil, fmt.Errorf("no collectors enabled")
	}

	var names []string
	for _, c := range registered {
		names = append(names, c.Name())
	}
	logger.Debug("all enabled collectors registered", zap.Strings("enabled_collectors", names))

	return registered, nil
}
