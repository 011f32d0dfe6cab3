package varnish

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// InstanceSource 每轮采集的实例列表来源
type InstanceSource interface {
	Instances(ctx context.Context) ([]string, error)
}

// Discoverer 通过 glob 标记文件（如 /var/lib/varnish/<name>/_.vsm_mgt）发现实例，
// 实例名取 pattern 的第一个捕获组
type Discoverer struct {
	fs      afero.Fs
	glob    string
	pattern *regexp.Regexp
	logger  *zap.Logger
}

// NewDiscoverer pattern 必须包含捕获组
func NewDiscoverer(fs afero.Fs, glob, pattern string, logger *zap.Logger) (*Discoverer, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile discovery pattern %q: %w", pattern, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("discovery pattern %q has no capture group", pattern)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{fs: fs, glob: glob, pattern: re, logger: logger}, nil
}

// Instances 返回排序去重后的实例名，没有标记文件时为空列表
func (d *Discoverer) Instances(_ context.Context) ([]string, error) {
	paths, err := afero.Glob(d.fs, d.glob)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", d.glob, err)
	}

	seen := make(map[string]struct{}, len(paths))
	names := make([]string, 0, len(paths))
	for _, path := range paths {
		m := d.pattern.FindStringSubmatch(path)
		if m == nil || m[1] == "" {
			d.logger.Debug("marker file does not match discovery pattern", zap.String("path", path))
			continue
		}
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	sort.Strings(names)
	return names, nil
}

// StaticInstances 静态实例列表
type StaticInstances []string

func (s StaticInstances) Instances(_ context.Context) ([]string, error) {
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))
	for _, name := range s {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

// ImplicitInstance 不带 -n 的单个默认实例
type ImplicitInstance struct{}

func (ImplicitInstance) Instances(_ context.Context) ([]string, error) {
	return []string{""}, nil
}
