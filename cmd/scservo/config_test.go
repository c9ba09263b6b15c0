package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-scservo/transport"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scservo.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadBusConfig(t *testing.T) {
	path := writeConfig(t, `
port = "/dev/ttyUSB0"
baud_rate = 115200
timeout = "250ms"
echo_back = true
verbose = true
`)

	cfg, err := loadBusConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Port)
	assert.Equal(t, 115200, cfg.BaudRate)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.True(t, cfg.EchoBack)
	assert.True(t, cfg.Verbose)
}

func TestLoadBusConfig_DefaultsPreserved(t *testing.T) {
	path := writeConfig(t, `port = "/dev/ttyUSB1"`)

	cfg, err := loadBusConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Port)
	assert.Equal(t, transport.DefaultBaudRate, cfg.BaudRate)
	assert.False(t, cfg.EchoBack)
}

func TestLoadBusConfig_TimeoutMillis(t *testing.T) {
	path := writeConfig(t, `timeout_ms = 75`)

	cfg, err := loadBusConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 75*time.Millisecond, cfg.Timeout)
}

func TestLoadBusConfig_InvalidValues(t *testing.T) {
	_, err := loadBusConfig(writeConfig(t, `baud_rate = -9600`))
	assert.Error(t, err)

	_, err = loadBusConfig(writeConfig(t, `timeout = "soon"`))
	assert.Error(t, err)

	_, err = loadBusConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
