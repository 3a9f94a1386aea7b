// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

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
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewLogHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newLogHandler(&buf, "warn", "json"))

	logger.Info("message_admitted", "account_id", "acc-1")
	assert.Empty(t, buf.String(), "info is below the warn level")

	logger.Warn("verify_failed", "reason", "code_expired")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "verify_failed", entry["msg"])
	assert.Equal(t, "code_expired", entry["reason"])
}

func TestNewLogHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	h := newLogHandler(&buf, "info", "text")

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))

	slog.New(h).Info("register_created", "username", "alice")

	assert.Contains(t, buf.String(), "register_created")
	assert.Contains(t, buf.String(), "username=alice")
	assert.NotContains(t, buf.String(), "\x1b[", "no colour codes outside a terminal")
}
