package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/grez-lucas/dialer-helper/internal/config"
)

func TestNewLogger_JSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "dialer"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("Frame discovered", zap.String("url", "https://example.test"))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "dialer", entry["logger"])
	assert.Equal(t, "Frame discovered", entry["msg"])
	assert.Equal(t, "https://example.test", entry["url"])
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggerConfig{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")
	require.NoError(t, logger.Sync())

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggerConfig{Level: "loud", Format: "console"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("dropped")
	logger.Info("kept")
	require.NoError(t, logger.Sync())

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewLogger_UnknownFormat(t *testing.T) {
	_, err := NewLogger(config.LoggerConfig{Format: "xml"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.Error(t, err)
}

func TestNewLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialer.log")
	logger, err := NewLogger(config.LoggerConfig{Level: "info", Format: "console", LogFile: path, MaxSize: 1}, zapcore.AddSync(&bytes.Buffer{}))
	require.NoError(t, err)

	logger.Info("Country filled", zap.String("country", "Spain"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"country":"Spain"`)
}
