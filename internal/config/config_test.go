package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookfinder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 300*time.Millisecond, cfg.Search.Debounce)
	assert.Equal(t, 15, cfg.Search.PageSize)
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := writeConfig(t, `
openlibrary:
  base_url: http://127.0.0.1:9999
  timeout: 2s
search:
  debounce: 50ms
web_adapter:
  host: 0.0.0.0
  port: 9090
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9999", cfg.OpenLibrary.BaseURL)
	assert.Equal(t, "https://covers.openlibrary.org", cfg.OpenLibrary.CoversURL)
	assert.Equal(t, 2*time.Second, cfg.OpenLibrary.Timeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Search.Debounce)
	assert.Equal(t, "0.0.0.0:9090", cfg.WebAdapter.Address())
	assert.Equal(t, "http://0.0.0.0:9090", cfg.WebAdapter.FullURL())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "search: [unterminated")
	_, err := Load(path)
	require.Error(t, err)
	assert.False(t, IsInvalid(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"page size zero", func(c *Config) { c.Search.PageSize = 0 }},
		{"port out of range", func(c *Config) { c.WebAdapter.Port = 70000 }},
		{"bad base url", func(c *Config) { c.OpenLibrary.BaseURL = "not a url" }},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }},
		{"shared address", func(c *Config) { c.Health.Port = c.WebAdapter.Port }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsInvalid(err), "got %v", err)
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestPathResolution(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, DefaultPath, Path(""))

	t.Setenv(EnvPath, "/etc/bookfinder.yaml")
	assert.Equal(t, "/etc/bookfinder.yaml", Path(""))
	assert.Equal(t, "mine.yaml", Path("mine.yaml"))
}
