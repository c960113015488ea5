// Package config provides configuration management for gridlock: defaults,
// an optional JSON configuration file, and environment variable overrides.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (highest)
//  2. Configuration file (JSON)
//  3. Default values (lowest)
//
// All settings are validated during LoadConfig with messages that name the
// offending field and the accepted range.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// Config is the complete gridlock configuration.
type Config struct {
	Solver   SolverConfig   `json:"solver"`
	Logging  LoggingConfig  `json:"logging"`
	Server   ServerConfig   `json:"server"`
	Watch    WatchConfig    `json:"watch"`
	Cache    CacheConfig    `json:"cache"`
	Database DatabaseConfig `json:"database"`
}

// SolverConfig controls the search engine.
type SolverConfig struct {
	// Workers is the number of concurrent search workers. 1 selects the
	// sequential path.
	Workers int `json:"workers"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level"`
	// Format is text or json.
	Format string `json:"format"`
	// File, when set, appends log output to the named file instead of stderr.
	File string `json:"file,omitempty"`
}

// ServerConfig controls the HTTP solve service.
type ServerConfig struct {
	// Listen is the address the API binds to, e.g. "127.0.0.1:8480".
	Listen string `json:"listen"`
}

// WatchConfig controls the puzzle drop directory watcher.
type WatchConfig struct {
	// Directory to watch for puzzle files. Empty disables the watcher.
	Directory string `json:"directory,omitempty"`
	// Extension of puzzle files to pick up, including the dot.
	Extension string `json:"extension"`
	// DebounceMS coalesces rapid write events per file, in milliseconds.
	DebounceMS int `json:"debounce_ms"`
}

// Debounce returns the watch debounce window as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// CacheConfig controls the in-memory solution cache.
type CacheConfig struct {
	// Enabled toggles solution caching.
	Enabled bool `json:"enabled"`
	// Capacity is the maximum number of cached solutions.
	Capacity int `json:"capacity"`
}

// DatabaseConfig controls the optional Postgres solve history.
type DatabaseConfig struct {
	// Enabled toggles history recording.
	Enabled bool `json:"enabled"`
	// URL is a Postgres connection string.
	URL string `json:"url,omitempty"`
	// MaxConnections bounds the connection pool.
	MaxConnections int32 `json:"max_connections"`
	// MigrationsPath is a golang-migrate source URL, e.g. "file://migrations".
	MigrationsPath string `json:"migrations_path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Solver: SolverConfig{
			Workers: runtime.NumCPU(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8480",
		},
		Watch: WatchConfig{
			Extension:  ".sdk",
			DebounceMS: 200,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Capacity: 4096,
		},
		Database: DatabaseConfig{
			Enabled:        false,
			MaxConnections: 10,
			MigrationsPath: "file://migrations",
		},
	}
}

// LoadConfig builds a Config from defaults, the optional JSON file at path
// (ignored when path is empty or the file does not exist), and environment
// overrides, then validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies GRIDLOCK_* environment overrides.
func applyEnv(cfg *Config) {
	if v := os.Getenv("GRIDLOCK_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Solver.Workers = n
		}
	}
	if v := os.Getenv("GRIDLOCK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GRIDLOCK_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("GRIDLOCK_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("GRIDLOCK_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("GRIDLOCK_WATCH_DIR"); v != "" {
		cfg.Watch.Directory = v
	}
	if v := os.Getenv("GRIDLOCK_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Capacity = n
		}
	}
	if v := os.Getenv("GRIDLOCK_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
		cfg.Database.Enabled = true
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Solver.Workers < 1 {
		return fmt.Errorf("config: solver.workers must be >= 1, got %d", c.Solver.Workers)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("config: server.listen must not be empty")
	}
	if c.Watch.Directory != "" {
		if c.Watch.Extension == "" {
			return fmt.Errorf("config: watch.extension must not be empty when watch.directory is set")
		}
		if c.Watch.DebounceMS < 0 {
			return fmt.Errorf("config: watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMS)
		}
	}
	if c.Cache.Enabled && c.Cache.Capacity < 1 {
		return fmt.Errorf("config: cache.capacity must be >= 1, got %d", c.Cache.Capacity)
	}
	if c.Database.Enabled {
		if c.Database.URL == "" {
			return fmt.Errorf("config: database.url is required when database.enabled is true")
		}
		if c.Database.MaxConnections < 1 {
			return fmt.Errorf("config: database.max_connections must be >= 1, got %d", c.Database.MaxConnections)
		}
	}
	return nil
}

// SaveToFile writes the configuration as indented JSON, creating parent
// directories as needed.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// GetDefaultConfigPath returns the conventional location of the gridlock
// config file in the user's home directory.
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".gridlock", "config.json"), nil
}
