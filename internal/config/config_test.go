package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data_zips", cfg.Build.InputDir)
	assert.Equal(t, "docs", cfg.Build.OutDir)
	assert.Equal(t, 1000, cfg.Build.EmbedThreshold)
	assert.Equal(t, 20, cfg.Build.ExampleCap)
	assert.Equal(t, 4, cfg.Build.ParseWorkers)
	assert.Equal(t, "fp8", cfg.Build.DefaultPrecision)
	assert.Equal(t, "", cfg.Metadata.Path)
	assert.Equal(t, "", cfg.Resolve.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Resolve.Timeout())
	assert.Equal(t, 3, cfg.Resolve.MaxRetries)
	assert.InDelta(t, 10.0, cfg.Resolve.RatePerSec, 0.001)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
build:
  input_dir: artifacts
  embed_threshold: 50
store:
  driver: sqlite
  database_url: runs.db
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "artifacts", cfg.Build.InputDir)
	assert.Equal(t, 50, cfg.Build.EmbedThreshold)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "runs.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 20, cfg.Build.ExampleCap)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
build:
  embed_threshold: 50
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("IMAX_BUILD_EMBED_THRESHOLD", "7")
	t.Setenv("IMAX_LOG_LEVEL", "warn")
	t.Setenv("IMAX_RESOLVE_BASE_URL", "https://example.com/data")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Build.EmbedThreshold)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "https://example.com/data", cfg.Resolve.BaseURL)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("build: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func validDefaults() *Config {
	return &Config{
		Build: BuildConfig{
			EmbedThreshold: 1000,
			ExampleCap:     20,
			ParseWorkers:   4,
		},
		Resolve: ResolveConfig{TimeoutSecs: 30, MaxRetries: 3, RatePerSec: 10},
		Store:   StoreConfig{Driver: "none"},
		Server:  ServerConfig{Port: 8080},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero threshold embeds nothing", func(c *Config) { c.Build.EmbedThreshold = 0 }, ""},
		{"negative threshold", func(c *Config) { c.Build.EmbedThreshold = -1 }, "embed_threshold"},
		{"zero example cap", func(c *Config) { c.Build.ExampleCap = 0 }, "example_cap"},
		{"zero workers", func(c *Config) { c.Build.ParseWorkers = 0 }, "parse_workers"},
		{"zero timeout", func(c *Config) { c.Resolve.TimeoutSecs = 0 }, "timeout_secs"},
		{"zero rate", func(c *Config) { c.Resolve.RatePerSec = 0 }, "rate_per_sec"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"sqlite without url", func(c *Config) { c.Store.Driver = "sqlite" }, "database_url"},
		{"postgres with url", func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.DatabaseURL = "postgres://localhost/imax"
		}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
