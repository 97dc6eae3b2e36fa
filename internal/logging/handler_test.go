// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/gatehouse/pkg/errutil"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "not JSON: %s", buf.String())
	return entry
}

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup("gatehouse", "1.0.0", FormatJSON, "info", &buf)
	require.NoError(t, err)

	logger.Info("test message", "user_id", "01ABC")

	entry := decode(t, &buf)
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "gatehouse", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Equal(t, "01ABC", entry["user_id"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "level")
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup("gatehouse", "1.0.0", "TEXT", "", &buf)
	require.NoError(t, err)

	logger.Info("test message")

	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), "service=gatehouse")
}

func TestSetup_DefaultFormatIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup("gatehouse", "dev", "", "", &buf)
	require.NoError(t, err)

	logger.Info("test message")
	decode(t, &buf)
}

func TestSetup_Rejects(t *testing.T) {
	_, err := Setup("gatehouse", "dev", "xml", "info", nil)
	errutil.AssertErrorCode(t, err, "LOG_INVALID_FORMAT")

	_, err = Setup("gatehouse", "dev", "json", "chatty", nil)
	errutil.AssertErrorCode(t, err, "LOG_INVALID_LEVEL")
}

func TestSetup_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup("gatehouse", "dev", FormatJSON, "warn", &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Equal(t, "kept", decode(t, &buf)["msg"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		" warn": slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestHandler_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup("gatehouse", "1.0.0", FormatJSON, "debug", &buf)
	require.NoError(t, err)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.With("component", "web").InfoContext(ctx, "traced message")

	entry := decode(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
	assert.Equal(t, "web", entry["component"])
}

func TestHandler_NoTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup("gatehouse", "1.0.0", FormatJSON, "", &buf)
	require.NoError(t, err)

	logger.Info("no trace message")

	entry := decode(t, &buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	var buf bytes.Buffer
	logger, err := SetDefault("gatehouse", "2.0.0", FormatJSON, "info", &buf)
	require.NoError(t, err)
	assert.Same(t, logger, slog.Default())

	slog.Info("through the default")
	assert.Equal(t, "2.0.0", decode(t, &buf)["version"])

	_, err = SetDefault("gatehouse", "2.0.0", "xml", "info", &buf)
	require.Error(t, err)
	assert.Same(t, logger, slog.Default(), "a failed setup keeps the previous default")
}
