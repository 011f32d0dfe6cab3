package monitor

import "github.com/prometheus/client_golang/prometheus"

// -------------------------- varnishstat 采集器指标结构体 --------------------------
type VarnishCollectorMetrics struct {
	SamplesDispatched *prometheus.CounterVec // 每个实例转发的样本数（累计）
	FetchFailures     *prometheus.CounterVec // varnishstat 调用失败次数（累计）
	Instances         prometheus.Gauge       // 最近一次采集的实例数
}

// -------------------------- 采集器公共指标 --------------------------
type AgentCollectMetrics struct {
	Errors   *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}
