package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("POMO_HOME", "/tmp/pomo-test")
	cfg := DefaultConfig()
	if cfg.Storage.Backend != BackendJSON {
		t.Errorf("backend = %q, want json", cfg.Storage.Backend)
	}
	if cfg.Storage.Dir != filepath.Join("/tmp/pomo-test", "data") {
		t.Errorf("dir = %q", cfg.Storage.Dir)
	}
	if cfg.API.Port != 3000 {
		t.Errorf("port = %d, want 3000", cfg.API.Port)
	}
	if cfg.Gateway.URL != "" {
		t.Error("gateway should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("POMO_HOME", t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("expected defaults, got host %q", cfg.API.Host)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("POMO_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[storage]
backend = "sqlite"

[api]
port = 8080

[gateway]
url = "http://example.test"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.API.Port != 8080 || cfg.Gateway.URL != "http://example.test" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Gateway.RetryMax != 5 {
		t.Errorf("unset keys should keep defaults, got retry_max %d", cfg.Gateway.RetryMax)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[api\nport ="), 0o600)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}

	os.WriteFile(path, []byte("[storage]\nbackend = \"redis\"\n"), 0o600)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected unknown backend error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("POMO_HOME", t.TempDir())
	t.Setenv("POMO_STORAGE_BACKEND", " Postgres ")
	t.Setenv("POMO_POSTGRES_DSN", "postgres://x")
	t.Setenv("POMO_GATEWAY_URL", "http://gw")
	t.Setenv("POMO_USER_ID", "u-1")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Backend != "postgres" || cfg.Storage.PostgresDSN != "postgres://x" ||
		cfg.Gateway.URL != "http://gw" || cfg.User.ID != "u-1" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestSaveAndEnsureUserID(t *testing.T) {
	t.Setenv("POMO_HOME", t.TempDir())
	cfg := DefaultConfig()
	minted, err := EnsureUserID(&cfg)
	if err != nil || !minted || cfg.User.ID == "" {
		t.Fatalf("expected minted id, got %v %v %q", minted, err, cfg.User.ID)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.User.ID != cfg.User.ID {
		t.Fatalf("id not persisted: %q vs %q", loaded.User.ID, cfg.User.ID)
	}

	minted, _ = EnsureUserID(&loaded)
	if minted {
		t.Fatal("existing id should not be replaced")
	}
}

func TestStoreOptions(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.StoreOptions().Backend; got != "sqlite" {
		t.Errorf("json config should use sqlite for relational commands, got %q", got)
	}
	cfg.Storage.Backend = "postgres"
	if got := cfg.StoreOptions().Backend; got != "postgres" {
		t.Errorf("got %q", got)
	}
}
