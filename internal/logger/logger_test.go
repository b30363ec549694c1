package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type fileConfig struct{ level, output, file string }

func (c fileConfig) GetLevel() string  { return c.level }
func (c fileConfig) GetOutput() string { return c.output }
func (c fileConfig) GetFile() string   { return c.file }

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNewFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(zapcore.WarnLevel, zapcore.AddSync(&buf))

	l.Info("launch %d created", 1)
	l.Warn("launch %d rejected", 2)
	l.Sync()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "launch 2 rejected", entry["message"])
}

func TestInit(t *testing.T) {
	prev := defaultLogger
	t.Cleanup(func() { defaultLogger = prev })

	require.NoError(t, Init(fileConfig{level: "info", output: "file", file: filepath.Join(t.TempDir(), "app.log")}))
	require.NoError(t, Init(fileConfig{level: "debug", output: "stderr"}))
	assert.Error(t, Init(fileConfig{output: "syslog"}))
	assert.Error(t, Init(fileConfig{output: "file"}))
}
