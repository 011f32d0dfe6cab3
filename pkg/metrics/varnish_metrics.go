package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewVarnishSamplesDispatchedTotal 每个实例累计转发的样本数
func (m *MetricFactory) NewVarnishSamplesDispatchedTotal() *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "varnishstat_samples_dispatched_total",
		Help: "Samples dispatched per varnish instance",
	}, []string{"plugin_instance"})
	m.reg.MustRegister(c)
	return c
}

// NewVarnishFetchFailuresTotal varnishstat 调用失败次数
func (m *MetricFactory) NewVarnishFetchFailuresTotal() *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "varnishstat_fetch_failures_total",
		Help: "Failed varnishstat invocations per varnish instance",
	}, []string{"plugin_instance"})
	m.reg.MustRegister(c)
	return c
}

// NewVarnishInstances 最近一次采集发现的实例数
func (m *MetricFactory) NewVarnishInstances() prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "varnishstat_instances",
		Help: "Varnish instances found on the last collection",
	})
	m.reg.MustRegister(g)
	return g
}

// NewSampleStore 创建并注册 varnishstat 样本存储（counter/gauge 两个指标族）
func (m *MetricFactory) NewSampleStore() *SampleStore {
	s := NewSampleStore()
	m.reg.MustRegister(s)
	return s
}
