// Package sink varnishstat 样本的输出实现
package sink

import (
	"fmt"
	"io"
	"os"

	"github.com/varnishstat-agent/pkg/config"
	"github.com/varnishstat-agent/pkg/metrics"
	"github.com/varnishstat-agent/pkg/varnish"
)

// New 按 sink.type 选择输出目标，out 为 print/collectd 的输出流
func New(cfg *config.Config, out io.Writer, factory *metrics.MetricFactory) (varnish.MetricSink, error) {
	switch cfg.Sink.Type {
	case config.SinkPrometheus:
		return NewPrometheusSink(factory.NewSampleStore()), nil
	case config.SinkCollectd:
		host := cfg.Sink.Collectd.Hostname
		if host == "" {
			h, err := os.Hostname()
			if err != nil {
				return nil, fmt.Errorf("resolve hostname for collectd sink: %w", err)
			}
			host = h
		}
		return NewCollectdSink(out, host, cfg.Monitor.Interval), nil
	case config.SinkPrint:
		return NewPrintSink(out), nil
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Sink.Type)
	}
}
