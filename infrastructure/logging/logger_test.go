package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestNewWithWriter_JSON verifies the JSON field layout and level filtering.
func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(Config{Level: "warn", Format: FormatJSON}, &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("scorer degraded", zap.String("criterion", "grammar"))
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "scorer degraded", entry["message"])
	assert.Equal(t, "grammar", entry["criterion"])
	assert.Contains(t, entry, "timestamp")
}

// TestNewWithWriter_Console verifies the console encoder.
func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(Config{Level: "debug", Format: FormatConsole}, &buf)
	require.NoError(t, err)

	logger.Debug("hello")
	assert.Contains(t, buf.String(), "debug")
	assert.Contains(t, buf.String(), "hello")
}

// TestNew_InvalidConfig verifies that bad levels and formats are rejected.
func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad level", Config{Level: "loud"}},
		{"bad format", Config{Format: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

// TestNew_FileOutput verifies that logs are appended to a file.
func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")
	logger, err := New(Config{Output: path})
	require.NoError(t, err)

	logger.Info("evaluation complete")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "evaluation complete")
}
