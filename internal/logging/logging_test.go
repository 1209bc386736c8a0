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

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestNew_ErrorLevel(t *testing.T) {
	logger := New("error", "text")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Expected info level to be disabled at error level")
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json")
	logger.Info("model trained", "accuracy", 0.99)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "model trained", entry["msg"])
	assert.Equal(t, 0.99, entry["accuracy"])
}

func TestNewWithWriter_TextSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "text")
	logger.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestWithRequestID_And_RequestID(t *testing.T) {
	ctx := context.Background()
	if id := RequestID(ctx); id != "" {
		t.Errorf("Expected empty request ID, got %q", id)
	}

	ctx = WithRequestID(ctx, "req-123")
	if id := RequestID(ctx); id != "req-123" {
		t.Errorf("Expected req-123, got %q", id)
	}
}

func TestWithLogger_And_FromContext(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) == nil {
		t.Fatal("Expected default logger")
	}

	custom := New("debug", "json")
	ctx = WithLogger(ctx, custom)
	if FromContext(ctx) != custom {
		t.Error("Expected custom logger from context")
	}
}

func TestL_TagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewWithWriter(&buf, "info", "json"))
	ctx = WithRequestID(ctx, "req-456")

	L(ctx).Info("scored")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-456", entry["request_id"])
}

func TestL_WithoutRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewWithWriter(&buf, "info", "json"))

	L(ctx).Info("scored")
	assert.NotContains(t, buf.String(), "request_id")
}
