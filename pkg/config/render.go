package config

import (
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Render 按指定格式输出配置（yaml/toml），duration 统一输出为 "10s" 形式
func Render(w io.Writer, cfg *Config, format string) error {
	doc := cfg.document()
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "toml":
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q (valid: yaml/toml)", format)
	}
}

// document 转换为可直接回读的键值结构（与 mapstructure 键名一致）
func (c *Config) document() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"addr":          c.Server.Addr,
			"read_timeout":  c.Server.ReadTimeout.String(),
			"write_timeout": c.Server.WriteTimeout.String(),
			"idle_timeout":  c.Server.IdleTimeout.String(),
		},
		"monitor": map[string]any{
			"interval": c.Monitor.Interval.String(),
		},
		"varnish": map[string]any{
			"command":    c.Varnish.Command,
			"timeout":    c.Varnish.Timeout.String(),
			"kill_grace": c.Varnish.KillGrace.String(),
			"mode":       c.Varnish.Mode,
			"instances":  append([]string{}, c.Varnish.Instances...),
			"discovery": map[string]any{
				"glob":            c.Varnish.Discovery.Glob,
				"pattern":         c.Varnish.Discovery.Pattern,
				"require_running": c.Varnish.Discovery.RequireRunning,
			},
		},
		"sink": map[string]any{
			"type": c.Sink.Type,
			"collectd": map[string]any{
				"hostname": c.Sink.Collectd.Hostname,
			},
		},
		"log": map[string]any{
			"level":      c.Log.Level,
			"format":     c.Log.Format,
			"path":       c.Log.Path,
			"file":       c.Log.File,
			"stderr":     c.Log.Stderr,
			"max_size":   c.Log.MaxSize,
			"max_backup": c.Log.MaxBackup,
			"max_age":    c.Log.MaxAge,
		},
	}
}
