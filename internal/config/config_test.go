package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, 100.0, cfg.Market.DefaultLiquidity)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[server]
port = 9090

[storage]
backend = "file"
data_dir = "/var/lib/predictd"

[market]
default_liquidity = 250.0
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/lib/predictd", cfg.Storage.DataDir)
	assert.Equal(t, 250.0, cfg.Market.DefaultLiquidity)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PREDICTD_SERVER_PORT", "7001")
	t.Setenv("PREDICTD_STORAGE_DATA_DIR", "/tmp/snapshots")
	t.Setenv("PREDICTD_REDIS_ENABLED", "true")
	t.Setenv("PREDICTD_MARKET_DEFAULT_LIQUIDITY", "42.5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, "/tmp/snapshots", cfg.Storage.DataDir)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 42.5, cfg.Market.DefaultLiquidity)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }},
		{"file backend without dir", func(c *Config) { c.Storage.DataDir = "" }},
		{"postgres without coordinates", func(c *Config) {
			c.Storage.Backend = "postgres"
		}},
		{"redis enabled without addr", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Addr = ""
		}},
		{"s3 enabled without bucket", func(c *Config) { c.S3.Enabled = true }},
		{"non-positive liquidity", func(c *Config) { c.Market.DefaultLiquidity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
