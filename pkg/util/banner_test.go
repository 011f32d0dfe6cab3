package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFprintBanner(t *testing.T) {
	var buf bytes.Buffer
	FprintBanner(&buf, "vsa", "cyan", "listening on 0.0.0.0:9131")

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Greater(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[0], ColorCyan))
	assert.Equal(t, "listening on 0.0.0.0:9131", lines[len(lines)-1])
}

func TestColorCodeFallback(t *testing.T) {
	assert.Equal(t, ColorReset, colorCode("purple"))
	assert.Equal(t, ColorGreen, colorCode("green"))
}
