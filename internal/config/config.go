// Package config loads pomo's TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/sadopc/pomo/internal/store"
)

// Config holds all configuration.
type Config struct {
	User    UserConfig    `toml:"user"`
	Storage StorageConfig `toml:"storage"`
	API     APIConfig     `toml:"api"`
	Gateway GatewayConfig `toml:"gateway"`
	Logging LoggingConfig `toml:"logging"`
}

// UserConfig identifies this client to the gateway.
type UserConfig struct {
	ID string `toml:"id"`
}

// StorageConfig locates stored data. The TUI always keeps this device's
// state as JSON under Dir. Backend picks the relational store that serve,
// mcp and "history --store" use; "json" means SQLite at SQLitePath.
type StorageConfig struct {
	Backend     string `toml:"backend"`
	Dir         string `toml:"dir"`
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`
}

// APIConfig controls the gateway HTTP server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	Metrics     bool     `toml:"metrics"`
	MCP         bool     `toml:"mcp"`
}

// GatewayConfig points the TUI at a remote gateway. An empty URL keeps
// everything local.
type GatewayConfig struct {
	URL         string `toml:"url"`
	RetryMax    int    `toml:"retry_max"`
	RetryBaseMS int    `toml:"retry_base_ms"`
	RetryMaxMS  int    `toml:"retry_max_ms"`
	QueueSize   int    `toml:"queue_size"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Storage backends beyond the relational ones in package store.
const BackendJSON = "json"

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	home := Home()
	return Config{
		Storage: StorageConfig{
			Backend:    BackendJSON,
			Dir:        filepath.Join(home, "data"),
			SQLitePath: filepath.Join(home, "pomo.db"),
		},
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        3000,
			CORSOrigins: []string{"*"},
			Metrics:     true,
			MCP:         false,
		},
		Gateway: GatewayConfig{
			RetryMax:    5,
			RetryBaseMS: 500,
			RetryMaxMS:  30000,
			QueueSize:   256,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(home, "pomo.log"),
		},
	}
}

// Path returns the config file location.
func Path() string {
	return filepath.Join(Home(), "config.toml")
}

// Load reads the config file over the defaults and applies environment
// overrides. A missing file is not an error.
func Load() (Config, error) {
	return LoadFile(Path())
}

// LoadFile is Load for an explicit path.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("POMO_STORAGE_BACKEND"))); v != "" {
		cfg.Storage.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("POMO_POSTGRES_DSN")); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv("POMO_GATEWAY_URL")); v != "" {
		cfg.Gateway.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("POMO_USER_ID")); v != "" {
		cfg.User.ID = v
	}
}

// Validate checks values that would otherwise fail later and obscurely.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendJSON, store.BackendSQLite, store.BackendPostgres:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port: %d out of range", c.API.Port)
	}
	if c.Gateway.RetryMax < 0 || c.Gateway.RetryBaseMS < 0 || c.Gateway.RetryMaxMS < 0 {
		return fmt.Errorf("gateway: retry settings must not be negative")
	}
	return nil
}

// EnsureUserID mints a user id on first run and saves it.
func EnsureUserID(cfg *Config) (bool, error) {
	if cfg.User.ID != "" {
		return false, nil
	}
	cfg.User.ID = uuid.NewString()
	if err := Save(*cfg); err != nil {
		return true, fmt.Errorf("save user id: %w", err)
	}
	return true, nil
}

// Save writes the config file.
func Save(cfg Config) error {
	return SaveFile(Path(), cfg)
}

// SaveFile is Save for an explicit path.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// StoreOptions returns the relational backend options. The json backend
// has no relational store, so SQLite is used for server-side commands.
func (c Config) StoreOptions() store.Options {
	backend := c.Storage.Backend
	if backend == BackendJSON {
		backend = store.BackendSQLite
	}
	return store.Options{
		Backend:     backend,
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
	}
}

// Addr is the gateway listen address.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Home returns the pomo data directory, overridable with POMO_HOME.
func Home() string {
	if env := os.Getenv("POMO_HOME"); env != "" {
		return env
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "pomo")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pomo")
}
