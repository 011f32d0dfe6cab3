package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewAgentCollectErrorsTotal 创建「采集器错误总数」指标
// 指标类型：Counter（计数器）- 仅支持单调递增，服务重启后会重置为0
// 标签说明：
// collector: 采集器名称（如 "varnishstat"），用于区分不同采集模块
func (m *MetricFactory) NewAgentCollectErrorsTotal() *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_collect_errors_total",
		Help: "Total collection errors",
	}, []string{"collector"})
	m.reg.MustRegister(c)
	return c
}

// NewAgentCollectDurationSeconds 创建「采集器采集耗时分布」指标
// 指标类型：Histogram（直方图）
// 分桶说明：0.01s ~ 5.12s，varnishstat 默认 -t 2，超时的采集落在最后几个桶
func (m *MetricFactory) NewAgentCollectDurationSeconds() *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agent_collect_duration_seconds",
		Help:    "Collection duration per collector",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"collector"})
	m.reg.MustRegister(h)
	return h
}
