package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, "boilerbudget.db", c.DatabasePath)
	assert.Equal(t, "warn", c.LogLevel)
}

func TestLoadConfig_UsesDefaultsWithoutArgs(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, &want, cfg)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_JSONFile(t *testing.T) {
	path := writeFile(t, "client.json", `{
		"server_endpoint_addr": "10.0.0.1:7000",
		"online_check_interval": "500ms"
	}`)

	cfg, err := LoadConfig([]string{"-c", path})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:7000", cfg.ServerEndpointAddr)
	assert.Equal(t, 500*time.Millisecond, cfg.OnlineCheckInterval)
	assert.Equal(t, "boilerbudget.db", cfg.DatabasePath)
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	path := writeFile(t, "client.yml", "database_path: /tmp/bb.db\nrequest_timeout: 2s\nlog_file: bb.log\n")

	cfg, err := LoadConfig([]string{"-config", path})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/bb.db", cfg.DatabasePath)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "bb.log", cfg.LogFile)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeFile(t, "client.json", `{"server_endpoint_addr": "file:1", "log_level": "debug"}`)
	t.Setenv("BB_SERVER_ADDR", "env:2")
	t.Setenv("BB_LOG_LEVEL", "error")

	cfg, err := LoadConfig([]string{"-c", path, "-a", "flag:3"})
	require.NoError(t, err)
	assert.Equal(t, "flag:3", cfg.ServerEndpointAddr)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoadConfig_IntervalFlag(t *testing.T) {
	t.Setenv("BB_ONLINE_CHECK_INTERVAL", "250ms")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.OnlineCheckInterval)

	cfg, err = LoadConfig([]string{"-i", "7"})
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, cfg.OnlineCheckInterval)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig([]string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	require.ErrorContains(t, err, "config file")

	bad := writeFile(t, "bad.json", `{`)
	_, err = LoadConfig([]string{"-c", bad})
	require.Error(t, err)

	t.Setenv("BB_REQUEST_TIMEOUT", "soon")
	_, err = LoadConfig(nil)
	require.ErrorContains(t, err, "parse env")
}
