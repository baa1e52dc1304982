package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, cfg LogConfig) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cfg.Output = &buf
	cfg.Format = "json"
	require.NoError(t, InitWithConfig(cfg))
	t.Cleanup(func() { globalLogger = nil; detailedLogging = false })
	return &buf
}

func TestDecision(t *testing.T) {
	buf := capture(t, LogConfig{Level: "INFO"})
	Decision(context.Background(), "agent-a", "2025-10-10", "buy", "600519.SH", 100, "reason", "breakout")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "DECISION", line["type"])
	assert.Equal(t, "agent-a", line["agent"])
	assert.Equal(t, "600519.SH", line["symbol"])
	assert.Equal(t, float64(100), line["amount"])
	assert.Equal(t, "breakout", line["reason"])
}

func TestDebugNeedsDetailedLogging(t *testing.T) {
	buf := capture(t, LogConfig{Level: "DEBUG"})
	Debug(context.Background(), "hidden")
	assert.Empty(t, buf.String())

	buf = capture(t, LogConfig{Level: "DEBUG", DetailedLogging: true})
	Debug(context.Background(), "shown", "session", "2025-10-10")
	out := buf.String()
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"source"`)
	assert.True(t, strings.Contains(out, "logger_test.go"), out)
}

func TestErrorWithErr(t *testing.T) {
	buf := capture(t, LogConfig{Level: "INFO"})
	ErrorWithErr(context.Background(), "ledger write failed", assert.AnError, "agent", "agent-a")
	out := buf.String()
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, assert.AnError.Error())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "WARN", parseLogLevel("warn").String())
	assert.Equal(t, "INFO", parseLogLevel("verbose").String())
}
