package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, DefaultCatalogPath, cfg.CatalogPath)
	assert.Equal(t, DefaultPageSize, cfg.DefaultPageSize)
	assert.Equal(t, MaxPageSize, cfg.MaxPageSize)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.True(t, cfg.Server.Watch)
	assert.Equal(t, "admin", cfg.Admin.Username)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	content := []byte(`
data_dir: /srv/parquet
default_page_size: 25
server:
  port: 9090
  watch: false
admin:
  username: ops
  password: hunter2
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), content, 0600))

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "/srv/parquet", cfg.DataDir)
	assert.Equal(t, 25, cfg.DefaultPageSize)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Server.Watch)
	assert.Equal(t, "ops", cfg.Admin.Username)
	// Unset keys keep their defaults.
	assert.Equal(t, DefaultCatalogPath, cfg.CatalogPath)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PARQHUB_DATA_DIR", "/env/data")
	t.Setenv("PARQHUB_SERVER__PORT", "7070")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "/env/data", cfg.DataDir)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_FlagOverrides(t *testing.T) {
	t.Chdir(t.TempDir())

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("data_dir", "", "")
	require.NoError(t, flags.Set("data_dir", "/flag/data"))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "/flag/data", cfg.DataDir)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DataDir:         "data",
			CatalogPath:     "catalog.db",
			DefaultPageSize: 50,
			MaxPageSize:     200,
			Server:          ServerConfig{Port: 8080},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing data dir", func(c *Config) { c.DataDir = "" }, "data_dir"},
		{"missing catalog path", func(c *Config) { c.CatalogPath = "" }, "catalog_path"},
		{"page size above max", func(c *Config) { c.DefaultPageSize = 500 }, "default_page_size"},
		{"nonpositive max", func(c *Config) { c.MaxPageSize = 0 }, "max_page_size"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
