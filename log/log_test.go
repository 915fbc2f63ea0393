package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, sync, err := NewWithWriter(Config{Level: "info"}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("listening")
	require.NoError(t, sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "listening", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, Subsystem, entry["subsystem"])
	assert.Equal(t, Category, entry["category"])
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := NewWithWriter(Config{Level: "debug", Format: "console"}, &buf)
	require.NoError(t, err)

	logger.Debug("querying secret store")
	assert.Contains(t, buf.String(), "querying secret store")
	assert.Contains(t, buf.String(), Subsystem)
}

func TestNewWithWriter_Invalid(t *testing.T) {
	_, _, err := NewWithWriter(Config{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, _, err = NewWithWriter(Config{Format: "xml"}, &bytes.Buffer{})
	assert.EqualError(t, err, `invalid log format "xml"`)
}

func TestNew_File(t *testing.T) {
	cfg := DefaultConfig()
	cfg.File = filepath.Join(t.TempDir(), "broker.log")

	logger, closer, err := New(cfg)
	require.NoError(t, err)
	logger.Info("connection accepted")
	require.NoError(t, closer())

	data, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "connection accepted")
}
