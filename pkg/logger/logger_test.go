package logger_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varnishstat-agent/pkg/config"
	"github.com/varnishstat-agent/pkg/logger"
)

func testLogConfig(t *testing.T) config.ZapLogConfig {
	cfg := config.NewDefaultConfig().Log
	cfg.Path = t.TempDir()
	cfg.File = false
	return cfg
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := logger.NewWithWriter(testLogConfig(t), &buf)
	require.NoError(t, err)

	l.Named("varnishstat").Error("fetch failed")
	require.NoError(t, l.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "varnishstat", entry["logger"])
	assert.Equal(t, "fetch failed", entry["msg"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewWithWriterLevelFilter(t *testing.T) {
	cfg := testLogConfig(t)
	cfg.Level = "warn"

	var buf bytes.Buffer
	l, err := logger.NewWithWriter(cfg, &buf)
	require.NoError(t, err)

	l.Info("dropped")
	l.Debug("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewWritesRotatedFile(t *testing.T) {
	cfg := testLogConfig(t)
	cfg.File = true
	cfg.Path = filepath.Join(t.TempDir(), "nested")

	var buf bytes.Buffer
	l, err := logger.NewWithWriter(cfg, &buf)
	require.NoError(t, err)
	l.Info("to file")
	require.NoError(t, l.Sync())

	matches, err := filepath.Glob(filepath.Join(cfg.Path, "varnishstat-agent-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestPackageLoggerBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		logger.Info("no logger yet")
		_ = logger.Sync()
	})
}
