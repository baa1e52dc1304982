package trace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledByDefault(t *testing.T) {
	t.Setenv("LOG_TRACING_ENABLED", "")
	require.NoError(t, Init())
	assert.False(t, Enabled())

	ctx, span := StartSpan(context.Background(), "noop", Session("agent-a", "2025-10-10"))
	defer span.End()
	_, _, ok := GetTraceFields(ctx)
	assert.False(t, ok)
}

func TestSpansWrittenToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "spans.json")
	t.Setenv("LOG_TRACING_ENABLED", "true")
	t.Setenv("TRACE_FILE", path)
	require.NoError(t, Init())
	t.Cleanup(func() { enabled = false })

	ctx, span := StartSpan(context.Background(), "engine.RunSession", Session("agent-a", "2025-10-10"))
	traceID, spanID, ok := GetTraceFields(ctx)
	require.True(t, ok)
	assert.NotEmpty(t, traceID)
	assert.NotEmpty(t, spanID)
	span.End()

	require.NoError(t, Shutdown(context.Background()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "engine.RunSession")
	assert.Contains(t, string(data), "agent-a")
}
