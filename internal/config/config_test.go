package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr() != "127.0.0.1:6143" {
		t.Errorf("listen addr = %q", cfg.ListenAddr())
	}
	if cfg.Database.Path != "oversite.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Judge.Enabled {
		t.Error("judge should be disabled by default")
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oversite.toml")
	body := `
[server]
addr = "0.0.0.0"
port = 9000

[models]
dir = "/var/lib/oversite/models"
force_fallback = true

[judge]
enabled = true
model = "gemini-2.0-pro"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr() != "0.0.0.0:9000" {
		t.Errorf("listen addr = %q", cfg.ListenAddr())
	}
	if !cfg.Models.ForceFallback {
		t.Error("force_fallback not read")
	}
	if cfg.Judge.Model != "gemini-2.0-pro" {
		t.Errorf("judge model = %q", cfg.Judge.Model)
	}
	// Unset sections keep their defaults.
	if cfg.Database.Path != "oversite.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OVERSITE_PORT", "7001")
	t.Setenv("OVERSITE_DB", ":memory:")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Database.Path != ":memory:" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Judge.APIKey != "test-key" {
		t.Errorf("api key = %q", cfg.Judge.APIKey)
	}
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 6143 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestInvalidPortRejected(t *testing.T) {
	t.Setenv("OVERSITE_PORT", "99999")
	if _, err := Load(""); err == nil {
		t.Error("out-of-range port must be rejected")
	}
}
