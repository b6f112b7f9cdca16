package logger

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

func TestNewConsoleFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := Defaults()
	cfg.Level = "info"

	log, closeLog, err := New(cfg, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("shown", zap.Int("tokens", 3))
	require.NoError(t, closeLog())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"tokens": 3`)
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := Defaults()
	cfg.Format = "json"

	log, closeLog, err := New(cfg, &buf)
	require.NoError(t, err)
	log.Warn("watch", zap.String("path", "a.lox"))
	require.NoError(t, closeLog())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "watch", entry["msg"])
	assert.Equal(t, "a.lox", entry["path"])
}

func TestNewFileOutput(t *testing.T) {
	var buf bytes.Buffer
	cfg := Defaults()
	cfg.Output = "file"
	cfg.File = filepath.Join(t.TempDir(), "taylox.log")

	log, closeLog, err := New(cfg, &buf)
	require.NoError(t, err)
	log.Error("to file")
	require.NoError(t, closeLog())

	assert.Empty(t, buf.String(), "file output must not write to stderr")
	data, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "to file"))
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"level", func(c *Config) { c.Level = "loud" }, "unknown log level"},
		{"format", func(c *Config) { c.Format = "xml" }, "unknown log format"},
		{"output", func(c *Config) { c.Output = "syslog" }, "unknown log output"},
		{"missing file", func(c *Config) { c.Output = "both"; c.File = "" }, "needs a file name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			_, _, err := New(cfg, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
