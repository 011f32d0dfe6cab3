package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var sampleLabels = []string{"plugin_instance", "type_instance"}

type sampleKey struct {
	counter        bool
	pluginInstance string
	typeInstance   string
}

type sampleValue struct {
	value float64
	gen   uint64 // 最后一次写入所在的采集轮次
}

// SampleStore 保存每个序列的最新值，抓取时以 const metric 形式输出。
// varnish 的 counter 是绝对值，不能用 prometheus.Counter 的 Add 语义。
// 每轮采集由 BeginTick 开始，Sweep 删除本轮没有写入的序列。
type SampleStore struct {
	counterDesc *prometheus.Desc
	gaugeDesc   *prometheus.Desc

	mu     sync.RWMutex
	gen    uint64
	values map[sampleKey]sampleValue
}

// NewSampleStore 创建样本存储（未注册）
func NewSampleStore() *SampleStore {
	return &SampleStore{
		counterDesc: prometheus.NewDesc("varnishstat_counter", "varnishstat counter field", sampleLabels, nil),
		gaugeDesc:   prometheus.NewDesc("varnishstat_gauge", "varnishstat gauge field", sampleLabels, nil),
		values:      make(map[sampleKey]sampleValue),
	}
}

// SetCounter 记录 counter 字段的最新值
func (s *SampleStore) SetCounter(pluginInstance, typeInstance string, v float64) {
	s.set(sampleKey{counter: true, pluginInstance: pluginInstance, typeInstance: typeInstance}, v)
}

// SetGauge 记录 gauge 字段的最新值
func (s *SampleStore) SetGauge(pluginInstance, typeInstance string, v float64) {
	s.set(sampleKey{pluginInstance: pluginInstance, typeInstance: typeInstance}, v)
}

func (s *SampleStore) set(k sampleKey, v float64) {
	s.mu.Lock()
	s.values[k] = sampleValue{value: v, gen: s.gen}
	s.mu.Unlock()
}

// BeginTick 开始新一轮采集
func (s *SampleStore) BeginTick() {
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
}

// Sweep 删除本轮未写入的序列（实例消失或采集失败），返回删除数
func (s *SampleStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, v := range s.values {
		if v.gen != s.gen {
			delete(s.values, k)
			n++
		}
	}
	return n
}

// Reset 删除某个 plugin instance 的全部序列，返回删除数
func (s *SampleStore) Reset(pluginInstance string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.values {
		if k.pluginInstance == pluginInstance {
			delete(s.values, k)
			n++
		}
	}
	return n
}

// Clear 删除全部序列
func (s *SampleStore) Clear() {
	s.mu.Lock()
	clear(s.values)
	s.mu.Unlock()
}

// Len 当前保存的序列数
func (s *SampleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Describe 实现 prometheus.Collector
func (s *SampleStore) Describe(ch chan<- *prometheus.Desc) {
	ch <- s.counterDesc
	ch <- s.gaugeDesc
}

// Collect 实现 prometheus.Collector
func (s *SampleStore) Collect(ch chan<- prometheus.Metric) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.values {
		if k.counter {
			ch <- prometheus.MustNewConstMetric(s.counterDesc, prometheus.CounterValue, v.value, k.pluginInstance, k.typeInstance)
			continue
		}
		ch <- prometheus.MustNewConstMetric(s.gaugeDesc, prometheus.GaugeValue, v.value, k.pluginInstance, k.typeInstance)
	}
}
