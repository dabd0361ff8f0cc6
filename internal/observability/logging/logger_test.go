package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"monitoring-app/internal/handler/http/requestid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected slog.Level
	}{
		{name: "unset defaults to info", value: "", expected: slog.LevelInfo},
		{name: "debug", value: "debug", expected: slog.LevelDebug},
		{name: "upper case warn", value: "WARN", expected: slog.LevelWarn},
		{name: "error", value: "error", expected: slog.LevelError},
		{name: "invalid defaults to info", value: "loud", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.value)
			assert.Equal(t, tt.expected, LevelFromEnv())
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	logger := NewLogger()

	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewCLILogger_OmitsTimestamp(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer

	logger := NewCLILogger(&buf, false)
	logger.Info("cluster ready", slog.String("cluster", "main-cluster"))

	output := buf.String()
	assert.Contains(t, output, "msg=\"cluster ready\"")
	assert.Contains(t, output, "cluster=main-cluster")
	assert.NotContains(t, output, "time=")
}

func TestNewCLILogger_Verbose(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer

	quiet := NewCLILogger(&buf, false)
	quiet.Debug("hidden")
	assert.Empty(t, buf.String())

	verbose := NewCLILogger(&buf, true)
	verbose.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := requestid.WithRequestID(context.Background(), "req-123")

	WithRequestID(ctx, base).Info("served")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-123", entry["request_id"])
}

func TestWithRequestID_Empty(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	logger := WithRequestID(context.Background(), base)
	logger.Info("served")

	assert.Same(t, base, logger)
	assert.NotContains(t, buf.String(), "request_id")
}

func TestFromContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	assert.Same(t, logger, FromContext(WithLogger(context.Background(), logger)))
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
	assert.Equal(t, slog.Default(), FromContext(context.WithValue(context.Background(), loggerContextKey, "nope")))
}
