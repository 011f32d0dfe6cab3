package varnish

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Report 一轮采集的结果汇总
type Report struct {
	Instances []string
	// 每个采集实例转发的样本数（single 模式实例为 ""）
	Samples map[string]int
	// 调用、解析或转发失败的实例
	Failed []string
	// varnishstat 调用失败的实例
	FetchFailed []string
}

// Poller 发现 -> 调用 -> 解析 -> 转发，两轮之间不保留状态
type Poller struct {
	source  InstanceSource
	fetcher Fetcher
	naming  Naming
	sink    MetricSink
	logger  *zap.Logger
}

// NewPoller logger 为 nil 时丢弃日志
func NewPoller(source InstanceSource, fetcher Fetcher, naming Naming, sink MetricSink, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		source:  source,
		fetcher: fetcher,
		naming:  naming,
		sink:    sink,
		logger:  logger.Named(PluginName),
	}
}

// Tick 依次采集所有实例，单个实例失败不影响其它实例，错误合并返回；发现失败直接中止本轮
func (p *Poller) Tick(ctx context.Context) (Report, error) {
	report := Report{Samples: map[string]int{}}

	instances, err := p.source.Instances(ctx)
	if err != nil {
		return report, fmt.Errorf("discover instances: %w", err)
	}
	report.Instances = instances
	if len(instances) == 0 {
		p.logger.Debug("no varnish instances found")
		return report, nil
	}

	var errs error
	for _, instance := range instances {
		if err := ctx.Err(); err != nil {
			return report, multierr.Append(errs, err)
		}
		n, err := p.PollInstance(ctx, instance)
		report.Samples[instance] = n
		if err != nil {
			report.Failed = append(report.Failed, instance)
			var fe *FetchError
			if errors.As(err, &fe) {
				report.FetchFailed = append(report.FetchFailed, instance)
			}
			errs = multierr.Append(errs, err)
		}
	}
	return report, errs
}

// PollInstance 采集单个实例，返回已转发的样本数（后续字段失败时已转发的不回滚）
func (p *Poller) PollInstance(ctx context.Context, instance string) (int, error) {
	log := p.logger.With(zap.String("instance", instance))

	out, err := p.fetcher.Fetch(ctx, instance)
	if err != nil {
		log.Error("varnishstat failed",
			zap.Int("status", out.Status),
			zap.String("output", string(out.Data)),
			zap.Error(err))
		return 0, err
	}

	snap, err := Parse(out.Data)
	if err != nil {
		log.Error("invalid varnishstat output", zap.Error(err))
		return 0, err
	}

	n, err := p.Dispatch(ctx, instance, snap)
	if err != nil {
		return n, fmt.Errorf("instance %q: %w", instance, err)
	}
	log.Debug("snapshot dispatched", zap.Int("samples", n), zap.Int("fields", len(snap.Fields)))
	return n, nil
}

// Dispatch 分类并转发快照中的字段，遇到未知 flag、命名失败或输出错误即停止
func (p *Poller) Dispatch(ctx context.Context, instance string, snap *Snapshot) (int, error) {
	n := 0
	for _, f := range snap.Fields {
		if f.Name == TimestampKey {
			continue
		}
		kind, ok, err := Classify(f)
		if err != nil {
			return n, err
		}
		if !ok {
			continue
		}
		pluginInstance, typeInstance, err := p.naming.Name(instance, f.Name)
		if err != nil {
			return n, err
		}
		sample := Sample{
			Plugin:         PluginName,
			PluginInstance: pluginInstance,
			Kind:           kind,
			TypeInstance:   typeInstance,
			Value:          f.Value,
		}
		if err := p.sink.Dispatch(ctx, sample); err != nil {
			return n, fmt.Errorf("dispatch %s: %w", f.Name, err)
		}
		n++
	}
	return n, nil
}
