package metrics

// MetricFactory 指标工厂，统一创建并注册指标（counter/gauge/histogram/collector）。
type MetricFactory struct {
	reg Registers
}

// NewMetricFactory 创建指标工厂
func NewMetricFactory(reg Registers) *MetricFactory {
	return &MetricFactory{reg: reg}
}
