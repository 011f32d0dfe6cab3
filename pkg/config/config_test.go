package config_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varnishstat-agent/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Log.Path = t.TempDir()
	return cfg
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "varnishstat", cfg.Varnish.Command)
	assert.Equal(t, 2*time.Second, cfg.Varnish.Timeout)
	assert.Equal(t, config.ModePerInstance, cfg.Varnish.Mode)
	assert.Equal(t, config.SinkPrometheus, cfg.Sink.Type)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"unknown mode", func(c *config.Config) { c.Varnish.Mode = "cluster" }},
		{"unknown sink", func(c *config.Config) { c.Sink.Type = "graphite" }},
		{"empty command", func(c *config.Config) { c.Varnish.Command = "" }},
		{"zero timeout", func(c *config.Config) { c.Varnish.Timeout = 0 }},
		{"interval too short", func(c *config.Config) { c.Monitor.Interval = 100 * time.Millisecond }},
		{"bad addr", func(c *config.Config) { c.Server.Addr = "not-an-addr" }},
		{"pattern without group", func(c *config.Config) { c.Varnish.Discovery.Pattern = `^/var/lib/varnish/.*` }},
		{"bad glob", func(c *config.Config) { c.Varnish.Discovery.Glob = "/var/lib/[" }},
		{"duplicate instance", func(c *config.Config) { c.Varnish.Instances = []string{"a", "a"} }},
		{"empty instance", func(c *config.Config) { c.Varnish.Instances = []string{" "} }},
		{"instances in single mode", func(c *config.Config) {
			c.Varnish.Mode = config.ModeSingle
			c.Varnish.Instances = []string{"a"}
		}},
		{"bad log level", func(c *config.Config) { c.Log.Level = "verbose" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDecodeSettings(t *testing.T) {
	cfg := testConfig(t)
	err := config.Decode(map[string]any{
		"varnish": map[string]any{
			"mode":      "single",
			"timeout":   "5s",
			"instances": "",
		},
		"monitor": map[string]any{"interval": "30s"},
		"sink":    map[string]any{"type": "print"},
	}, cfg)
	require.NoError(t, err)

	assert.Equal(t, config.ModeSingle, cfg.Varnish.Mode)
	assert.Equal(t, 5*time.Second, cfg.Varnish.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, config.SinkPrint, cfg.Sink.Type)
	assert.Empty(t, cfg.Varnish.Instances)
}

func TestRenderYAMLReadsBack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Varnish.Instances = []string{"vhost1", "vhost2"}
	cfg.Varnish.Timeout = 3 * time.Second

	var buf bytes.Buffer
	require.NoError(t, config.Render(&buf, cfg, "yaml"))

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(&buf))

	got := config.NewDefaultConfig()
	require.NoError(t, config.Decode(v.AllSettings(), got))
	assert.Equal(t, cfg, got)
}

func TestRenderTOML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, config.Render(&buf, testConfig(t), "toml"))

	out := buf.String()
	assert.Contains(t, out, "[varnish]")
	assert.Contains(t, out, "command = 'varnishstat'")
	assert.True(t, strings.Contains(out, "timeout = '2s'"), out)
}

func TestRenderUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, config.Render(&buf, testConfig(t), "ini"))
}
