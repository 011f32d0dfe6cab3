package sink

import (
	"context"
	"fmt"

	"github.com/varnishstat-agent/pkg/metrics"
	"github.com/varnishstat-agent/pkg/varnish"
)

// PrometheusSink 把样本最新值写入 SampleStore，由 /metrics 暴露。
// 每轮采集结束后，失败或消失的实例不再暴露旧值。
type PrometheusSink struct {
	store *metrics.SampleStore
}

func NewPrometheusSink(store *metrics.SampleStore) *PrometheusSink {
	return &PrometheusSink{store: store}
}

func (s *PrometheusSink) Dispatch(_ context.Context, sample varnish.Sample) error {
	v, err := sample.Float()
	if err != nil {
		return err
	}
	switch sample.Kind {
	case varnish.KindCounter:
		s.store.SetCounter(sample.PluginInstance, sample.TypeInstance, v)
	case varnish.KindGauge:
		s.store.SetGauge(sample.PluginInstance, sample.TypeInstance, v)
	default:
		return fmt.Errorf("unsupported sample kind %q", sample.Kind)
	}
	return nil
}

// BeginTick 开始一轮采集
func (s *PrometheusSink) BeginTick() {
	s.store.BeginTick()
}

// EndTick 删除失败实例的序列（包括失败前已写入的部分），再清理本轮未写入的序列
func (s *PrometheusSink) EndTick(report varnish.Report) {
	for _, instance := range report.Failed {
		// single 模式的实例为 ""，序列的实例名来自字段前缀
		if instance == "" {
			s.store.Clear()
			continue
		}
		s.store.Reset(instance)
	}
	s.store.Sweep()
}
