package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.ServerURL != "http://localhost:8080" {
		t.Errorf("server_url = %q", cfg.Client.ServerURL)
	}
	if cfg.Client.Timeout() != 8*time.Second {
		t.Errorf("timeout = %v", cfg.Client.Timeout())
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.yaml")
	data := `
client:
  server_url: https://dungeon.example
  username: ada
  timeout_seconds: 3
server:
  addr: ":9090"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.ServerURL != "https://dungeon.example" {
		t.Errorf("server_url = %q", cfg.Client.ServerURL)
	}
	if cfg.Client.Username != "ada" {
		t.Errorf("username = %q", cfg.Client.Username)
	}
	if cfg.Client.Timeout() != 3*time.Second {
		t.Errorf("timeout = %v", cfg.Client.Timeout())
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	// untouched keys keep their defaults
	if cfg.Server.DBPath != "crawl.sqlite" {
		t.Errorf("db_path = %q", cfg.Server.DBPath)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.yaml")
	if err := os.WriteFile(path, []byte("client:\n  server_url: http://from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CRAWL_SERVER_URL", "http://from-env")
	t.Setenv("GAMED_ADDR", ":7000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.ServerURL != "http://from-env" {
		t.Errorf("server_url = %q, want env value", cfg.Client.ServerURL)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("addr = %q, want env value", cfg.Server.Addr)
	}
}

func TestValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.yaml")
	if err := os.WriteFile(path, []byte("client:\n  timeout_seconds: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("negative timeout accepted")
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}
