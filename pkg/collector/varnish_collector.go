package collector

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/varnishstat-agent/pkg/config"
	"github.com/varnishstat-agent/pkg/logger"
	"github.com/varnishstat-agent/pkg/metrics"
	"github.com/varnishstat-agent/pkg/monitor"
	"github.com/varnishstat-agent/pkg/varnish"
)

// Poller 一次采集周期（varnish.Poller 实现）
type Poller interface {
	Tick(ctx context.Context) (varnish.Report, error)
}

// TickObserver 需要感知采集轮次边界的输出（prometheus sink 清理过期序列）
type TickObserver interface {
	BeginTick()
	EndTick(report varnish.Report)
}

// VarnishCollector varnishstat 采集器（实现 registers.Collector 接口）
type VarnishCollector struct {
	name     string
	cfg      *config.VarnishConfig
	poller   Poller
	observer TickObserver
	metrics  monitor.VarnishCollectorMetrics
	agent    monitor.AgentCollectMetrics

	// LookPath 启动前检查 varnishstat 是否可执行，单测中替换
	LookPath func(file string) (string, error)
}

// NewVarnishCollector 创建 varnishstat 采集器，out 实现 TickObserver 时在每轮前后通知
func NewVarnishCollector(cfg *config.VarnishConfig, poller Poller, out varnish.MetricSink, metricFactory *metrics.MetricFactory) *VarnishCollector {
	observer, _ := out.(TickObserver)
	return &VarnishCollector{
		name:     varnish.PluginName,
		cfg:      cfg,
		poller:   poller,
		observer: observer,
		metrics: monitor.VarnishCollectorMetrics{
			SamplesDispatched: metricFactory.NewVarnishSamplesDispatchedTotal(),
			FetchFailures:     metricFactory.NewVarnishFetchFailuresTotal(),
			Instances:         metricFactory.NewVarnishInstances(),
		},
		agent: monitor.AgentCollectMetrics{
			Errors:   metricFactory.NewAgentCollectErrorsTotal(),
			Duration: metricFactory.NewAgentCollectDurationSeconds(),
		},
		LookPath: exec.LookPath,
	}
}

// Name 返回采集器名称
func (c *VarnishCollector) Name() string { return c.name }

// Init 预检查 varnishstat 命令
func (c *VarnishCollector) Init() error {
	path, err := c.LookPath(c.cfg.Command)
	if err != nil {
		logger.Error("varnishstat command not found", zap.String("command", c.cfg.Command), zap.Error(err))
		return fmt.Errorf("look up %s: %w", c.cfg.Command, err)
	}
	logger.Debug("varnishstat command resolved", zap.String("path", path), zap.String("mode", c.cfg.Mode))
	return nil
}

// Collect 执行一次 varnishstat 采集，单个实例失败不影响其它实例
func (c *VarnishCollector) Collect(ctx context.Context) error {
	start := time.Now()
	defer func() {
		c.agent.Duration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	}()

	if c.observer != nil {
		c.observer.BeginTick()
	}
	report, err := c.poller.Tick(ctx)
	if c.observer != nil {
		c.observer.EndTick(report)
	}

	c.metrics.Instances.Set(float64(len(report.Instances)))
	for instance, n := range report.Samples {
		c.metrics.SamplesDispatched.WithLabelValues(instance).Add(float64(n))
	}
	for _, instance := range report.FetchFailed {
		c.metrics.FetchFailures.WithLabelValues(instance).Inc()
	}

	if err != nil {
		c.agent.Errors.WithLabelValues(c.name).Inc()
		return fmt.Errorf("varnishstat collect: %w", err)
	}
	logger.Debug("collected varnishstat",
		zap.Int("instances", len(report.Instances)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Close 无需释放资源
func (c *VarnishCollector) Close() error {
	return nil
}
