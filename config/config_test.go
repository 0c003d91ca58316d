package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inDir runs the test from an empty working directory with a fresh viper
func inDir(t *testing.T) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	inDir(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.WebServer.Port)
	assert.Equal(t, "https://data-backend.bed.dev", cfg.Backend.URL)
	assert.Equal(t, 20, cfg.Backend.TimeoutSeconds)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Display.FenceRequests)
	assert.Equal(t, 10, cfg.Display.TickCount)
	assert.Equal(t, 5, cfg.Display.PageWaitSeconds)
	assert.Less(t, cfg.Display.PageWaitSeconds, cfg.Backend.TimeoutSeconds)
	assert.Contains(t, cfg.Display.Timezones, "America/Phoenix")
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := inDir(t)
	yaml := []byte(`
backend:
  url: http://backend.internal:8000
display:
  fence_requests: false
log:
  format: json
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("RDRDASH_WEBSERVER_PORT", "9999")
	t.Setenv("RDRDASH_REDIS_ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://backend.internal:8000", cfg.Backend.URL)
	assert.False(t, cfg.Display.FenceRequests)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "9999", cfg.WebServer.Port)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadConfig_BrokenFile(t *testing.T) {
	dir := inDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: [\n"), 0o600))

	_, err := LoadConfig()
	assert.Error(t, err)
}
