// Package varnish 调用 varnishstat 采集计数器快照，逐字段作为样本转发给 MetricSink
package varnish

import (
	"context"
	"encoding/json"
	"fmt"
)

// PluginName 每个样本携带的插件名
const PluginName = "varnishstat"

// Kind 样本的指标类型
type Kind string

const (
	KindCounter Kind = "counter"
	KindGauge   Kind = "gauge"
)

const (
	// FormatBitmap 位图字段，不转发
	FormatBitmap = "b"
	// TimestampKey 快照元数据，不是指标字段
	TimestampKey = "timestamp"
)

var flagKinds = map[string]Kind{
	"c": KindCounter,
	"g": KindGauge,
}

// Field varnishstat 快照中的一个字段
type Field struct {
	Name        string
	Flag        string
	Format      string
	Value       json.Number
	Description string
}

// Sample 分类后交给 MetricSink 的一个值
type Sample struct {
	Plugin         string
	PluginInstance string
	Kind           Kind
	TypeInstance   string
	Value          json.Number
}

// String standalone 输出格式：<plugin>.<instance>.<kind>-<type-instance>.value = <value>
func (s Sample) String() string {
	return fmt.Sprintf("%s.%s.%s-%s.value = %s", s.Plugin, s.PluginInstance, s.Kind, s.TypeInstance, s.Value)
}

func (s Sample) Float() (float64, error) {
	v, err := s.Value.Float64()
	if err != nil {
		return 0, fmt.Errorf("sample %s.%s-%s: invalid value %q: %w", s.PluginInstance, s.Kind, s.TypeInstance, s.Value, err)
	}
	return v, nil
}

// MetricSink 样本输出（prometheus/collectd/print）
type MetricSink interface {
	Dispatch(ctx context.Context, sample Sample) error
}

// MetricSinkFunc 函数适配为 MetricSink
type MetricSinkFunc func(ctx context.Context, sample Sample) error

func (f MetricSinkFunc) Dispatch(ctx context.Context, sample Sample) error {
	return f(ctx, sample)
}
