package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, slog.LevelWarn, cfg.Level)
	assert.False(t, cfg.JSON)
}

func TestDaemonConfig(t *testing.T) {
	var buf bytes.Buffer
	cfg := DaemonConfig(&buf)
	assert.Equal(t, slog.LevelInfo, cfg.Level)
	assert.True(t, cfg.JSON)
	assert.Same(t, &buf, cfg.Output)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestInit(t *testing.T) {
	t.Cleanup(func() { Init(DefaultConfig()) })

	t.Run("json_output", func(t *testing.T) {
		var buf bytes.Buffer
		Init(Config{Level: slog.LevelDebug, JSON: true, Output: &buf})
		assert.True(t, Debug)

		Info("alarm fired", KeyAlarmID, "r1:08:00")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "alarm fired", line["msg"])
		assert.Equal(t, "r1:08:00", line[KeyAlarmID])
	})

	t.Run("level_filters", func(t *testing.T) {
		var buf bytes.Buffer
		Init(Config{Level: slog.LevelWarn, Output: &buf})
		assert.False(t, Debug)

		Info("hidden")
		DebugLog("hidden")
		Warn("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

// =============================================================================
// Context Tests
// =============================================================================

func TestRequestID(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))

	ctx := NewRequestContext(context.Background())
	id := RequestIDFromContext(ctx)
	assert.Len(t, id, 36)
	assert.NotEqual(t, id, GenerateRequestID())

	ctx = WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
}

func TestContextLoggingCarriesRequestID(t *testing.T) {
	t.Cleanup(func() { Init(DefaultConfig()) })

	var buf bytes.Buffer
	Init(Config{Level: slog.LevelInfo, JSON: true, Output: &buf})

	ctx := WithRequestID(context.Background(), "req-42")
	WarnContext(ctx, "dropped corrupt record", KeyKey, "medication_reminders")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-42", line[KeyRequestID])
	assert.Equal(t, "medication_reminders", line[KeyKey])
}

// =============================================================================
// Mask Tests
// =============================================================================

func TestMaskURL(t *testing.T) {
	short := "https://a.io/x"
	assert.Equal(t, short, MaskURL(short))

	long := "https://discord.com/api/webhooks/123/secret-token"
	masked := MaskURL(long)
	assert.Equal(t, long[:URLMaskLength]+"***", masked)
	assert.NotContains(t, masked, "secret-token")
}

func TestMaskString(t *testing.T) {
	msg := "posting to https://hooks.slack.com/services/T000/B000/XXXXXXXX failed"
	out := MaskString(msg)
	assert.Contains(t, out, "posting to")
	assert.Contains(t, out, "***")
	assert.NotContains(t, out, "XXXXXXXX")

	local := "callback http://localhost:8787/v1/actions"
	assert.Equal(t, local, MaskString(local))
}
