package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}

func TestDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg := Load()
	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, 3, cfg.RetryCount)
	assert.Equal(t, time.Second, cfg.RetryInterval())
	assert.False(t, cfg.RetryBackoff)
	assert.Equal(t, 1, cfg.Workers)
}

func TestServerConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mgapi_config.json"),
		[]byte(`{"mgapi_url": "http://node07:8123", "retry_count": 5}`), 0644))
	chdir(t, dir)

	cfg := Load()
	assert.Equal(t, "http://node07:8123", cfg.ServerURL)
	assert.Equal(t, 5, cfg.RetryCount)
	assert.Equal(t, 30, cfg.TimeoutSec, "unset fields keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mgapi_config.json"),
		[]byte(`{"mgapi_url": "http://node07:8123"}`), 0644))
	chdir(t, dir)

	t.Setenv("MGAPI_URL", "http://other:9000")
	t.Setenv("MGAPI_TIMEOUT", "10")
	t.Setenv("MGAPI_RETRY_BACKOFF", "true")

	cfg := Load()
	assert.Equal(t, "http://other:9000", cfg.ServerURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.True(t, cfg.RetryBackoff)
}

func TestBadEnvValuesIgnored(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MGAPI_TIMEOUT", "soon")
	t.Setenv("MGAPI_RETRY_COUNT", "-2")

	cfg := Load()
	assert.Equal(t, 30, cfg.TimeoutSec)
	assert.Equal(t, 3, cfg.RetryCount)
}
