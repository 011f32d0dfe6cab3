package varnish

import (
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/varnishstat-agent/pkg/config"
)

// NewFromConfig 按采集模式构建 Poller：per-instance 按实例带 -n 调用，字段名原样；
// single 单次调用，实例名取字段前缀
func NewFromConfig(cfg config.VarnishConfig, fs afero.Fs, sink MetricSink, logger *zap.Logger) (*Poller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fetcher := NewCommandFetcher(cfg.Command, cfg.Timeout, cfg.KillGrace)

	switch cfg.Mode {
	case config.ModeSingle:
		return NewPoller(ImplicitInstance{}, fetcher, PrefixNaming{}, sink, logger), nil
	case config.ModePerInstance:
		source, err := instanceSource(cfg, fs, logger)
		if err != nil {
			return nil, err
		}
		return NewPoller(source, fetcher, PerInstanceNaming{}, sink, logger), nil
	default:
		return nil, fmt.Errorf("unknown varnish mode %q", cfg.Mode)
	}
}

func instanceSource(cfg config.VarnishConfig, fs afero.Fs, logger *zap.Logger) (InstanceSource, error) {
	var source InstanceSource
	if len(cfg.Instances) > 0 {
		source = StaticInstances(cfg.Instances)
	} else {
		d, err := NewDiscoverer(fs, cfg.Discovery.Glob, cfg.Discovery.Pattern, logger)
		if err != nil {
			return nil, err
		}
		source = d
	}
	if cfg.Discovery.RequireRunning {
		source = NewRunningFilter(source, nil, logger)
	}
	return source, nil
}
