package varnish

import (
	"fmt"
	"regexp"
)

// Naming 由实例名和字段名推导 plugin instance / type instance
type Naming interface {
	Name(instance, field string) (pluginInstance, typeInstance string, err error)
}

// PerInstanceNaming 使用采集实例名，字段名原样作为 type instance
type PerInstanceNaming struct{}

func (PerInstanceNaming) Name(instance, field string) (string, string, error) {
	return instance, field, nil
}

var prefixPattern = regexp.MustCompile(`^([A-Z]+)\.(.+)$`)

// PrefixNaming 拆分字段名的大写前缀：MAIN.uptime -> 实例 MAIN，type instance uptime
type PrefixNaming struct{}

func (PrefixNaming) Name(_, field string) (string, string, error) {
	m := prefixPattern.FindStringSubmatch(field)
	if m == nil {
		return "", "", fmt.Errorf("field %q: %w", field, ErrNoPrefix)
	}
	return m[1], m[2], nil
}
