package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewHandler_AddsContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, DefaultConfig()))

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithUsername(ctx, "alice")
	ctx = ContextWithSessionID(ctx, "0f8fad5b-d9cb-469f-a165-70867728950e")

	log.With("component", "auth").InfoContext(ctx, "session created")

	entry := decode(t, &buf)
	assert.Equal(t, "session created", entry["msg"])
	assert.Equal(t, "auth", entry["component"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "alice", entry["username"])
	assert.Equal(t, "0f8fad5b...", entry["session_id"])
}

func TestNewHandler_EmptyContext(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, DefaultConfig())).InfoContext(context.Background(), "ready")

	entry := decode(t, &buf)
	assert.NotContains(t, entry, "request_id")
	assert.NotContains(t, entry, "session_id")
}

func TestNewHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = "warn"
	log := slog.New(NewHandler(&buf, cfg))

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestMaskSessionID(t *testing.T) {
	assert.Equal(t, "********", MaskSessionID("short"))
	assert.Equal(t, "abcdefgh...", MaskSessionID("abcdefghijkl"))
}
