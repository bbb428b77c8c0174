package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, levelFromString("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, levelFromString("warning"))
	assert.Equal(t, zapcore.ErrorLevel, levelFromString("error"))
	assert.Equal(t, zapcore.InfoLevel, levelFromString("nonsense"))
}

func TestBuildWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := build(Config{Level: "info"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("visible", zap.String("user_id", "u1"))
	require.NoError(t, log.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "visible", line["msg"])
	assert.Equal(t, "u1", line["user_id"])
}

func TestBuildWritesRotatingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "healthcrm.log")
	var buf bytes.Buffer
	log, err := build(Config{Level: "info", File: file}, &buf)
	require.NoError(t, err)

	log.Info("to disk")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to disk")
}
