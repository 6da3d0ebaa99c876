// Package config provides configuration management for ParqHub.
// Values are layered: built-in defaults, then parqhub.yaml, then
// PARQHUB_* environment variables, then CLI flags.
package config

import "fmt"

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port  int  `koanf:"port"`
	Watch bool `koanf:"watch"`
}

// AdminConfig holds the admin credential pair. Authentication is a plain
// credential comparison; anything stronger is out of scope.
type AdminConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// Config holds all ParqHub configuration options.
type Config struct {
	// DataDir is the directory scanned for *.parquet files.
	DataDir string `koanf:"data_dir"`

	// CatalogPath is the SQLite catalog database path. ":memory:" is
	// accepted for tests.
	CatalogPath string `koanf:"catalog_path"`

	// DefaultPageSize and MaxPageSize bound data-page requests.
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`

	Server  ServerConfig `koanf:"server"`
	Admin   AdminConfig  `koanf:"admin"`
	Verbose bool         `koanf:"verbose"`
}

// Default configuration values.
const (
	DefaultDataDir     = "parquet_files"
	DefaultCatalogPath = ".parqhub/catalog.db"
	DefaultPort        = 8080

	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Defaults returns the built-in configuration map consumed by the confmap
// provider.
func Defaults() map[string]any {
	return map[string]any{
		"data_dir":          DefaultDataDir,
		"catalog_path":      DefaultCatalogPath,
		"default_page_size": DefaultPageSize,
		"max_page_size":     MaxPageSize,
		"server.port":       DefaultPort,
		"server.watch":      true,
		"admin.username":    "admin",
		"admin.password":    "",
	}
}

// Validate checks the loaded configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.CatalogPath == "" {
		return fmt.Errorf("catalog_path is required")
	}
	if c.MaxPageSize < 1 {
		return fmt.Errorf("max_page_size must be positive")
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("default_page_size must be between 1 and max_page_size (%d)", c.MaxPageSize)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}
