package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Validate varnish 数据源配置校验
// 静态实例列表不能包含空字符串、路径分隔符或重复项
// 发现 glob 必须合法，正则必须至少包含一个捕获组
// single 模式下不使用实例列表
func (v *VarnishConfig) Validate() error {
	if err := valid.Struct(v); err != nil {
		return err
	}

	if v.Mode == ModeSingle && len(v.Instances) > 0 {
		return fmt.Errorf("varnish.instances is not used in %q mode", ModeSingle)
	}

	seen := map[string]bool{}
	for _, name := range v.Instances {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("varnish.instances cannot contain empty string")
		}
		if strings.ContainsAny(name, " \t\r\n") {
			return fmt.Errorf("varnish.instances: instance %q contains whitespace", name)
		}
		if seen[name] {
			return fmt.Errorf("varnish.instances duplicated entry: %q", name)
		}
		seen[name] = true
	}

	return v.Discovery.Validate()
}

// Validate 实例发现配置校验
func (d *DiscoveryConfig) Validate() error {
	if err := valid.Struct(d); err != nil {
		return err
	}
	if _, err := filepath.Match(d.Glob, ""); err != nil {
		return fmt.Errorf("varnish.discovery.glob invalid, got %q: %w", d.Glob, err)
	}
	re, err := regexp.Compile(d.Pattern)
	if err != nil {
		return fmt.Errorf("varnish.discovery.pattern invalid, got %q: %w", d.Pattern, err)
	}
	if re.NumSubexp() < 1 {
		return fmt.Errorf("varnish.discovery.pattern must contain a capture group, got %q", d.Pattern)
	}
	return nil
}
