package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New(), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Headless)
	assert.Equal(t, BackendChromedp, cfg.BrowserBackend)
	assert.Empty(t, cfg.TargetURL)
	assert.Equal(t, 10*time.Second, cfg.WaitTimeout)
	assert.Equal(t, 30*time.Second, cfg.PageLoadTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HEADLESS", "false")
	t.Setenv("BROWSER_BACKEND", "Rod")
	t.Setenv("WAIT_TIMEOUT", "3s")
	t.Setenv("TARGET_URL", "http://localhost:9000/mds.html")

	cfg, err := load(viper.New(), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.False(t, cfg.Headless)
	assert.Equal(t, BackendRod, cfg.BrowserBackend)
	assert.Equal(t, 3*time.Second, cfg.WaitTimeout)
	assert.Equal(t, "http://localhost:9000/mds.html", cfg.TargetURL)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SERVER_PORT=9090\nLOG_LEVEL=debug\n"), 0o600))

	cfg, err := load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown backend", "BROWSER_BACKEND", "selenium"},
		{"zero wait", "WAIT_TIMEOUT", "0s"},
		{"negative page load", "PAGE_LOAD_TIMEOUT", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := load(viper.New(), filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
