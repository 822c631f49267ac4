package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig writes a YAML config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
remote:
  base_url: https://example.supabase.co
  api_key: test-key
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.StateDir != ".arclist/state" {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
	if cfg.Sync.PushInterval != 2*time.Minute {
		t.Errorf("PushInterval = %v", cfg.Sync.PushInterval)
	}
	if cfg.Sync.DebounceInterval != 250*time.Millisecond {
		t.Errorf("DebounceInterval = %v", cfg.Sync.DebounceInterval)
	}
	if cfg.Session.IdleLimit != 24*time.Hour {
		t.Errorf("IdleLimit = %v", cfg.Session.IdleLimit)
	}
	if cfg.Dashboard.Enabled {
		t.Error("dashboard enabled by default")
	}
	if cfg.Dashboard.Port != 8080 {
		t.Errorf("dashboard port = %d", cfg.Dashboard.Port)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
state_dir: /tmp/cache
remote:
  base_url: https://example.supabase.co
  api_key: test-key
sync:
  push_interval: 30s
session:
  idle_limit: 1h
dashboard:
  enabled: true
  port: 9999
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.StateDir != "/tmp/cache" {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
	if cfg.Sync.PushInterval != 30*time.Second {
		t.Errorf("PushInterval = %v", cfg.Sync.PushInterval)
	}
	if cfg.Session.IdleLimit != time.Hour {
		t.Errorf("IdleLimit = %v", cfg.Session.IdleLimit)
	}
	if !cfg.Dashboard.Enabled || cfg.Dashboard.Port != 9999 {
		t.Errorf("dashboard = %+v", cfg.Dashboard)
	}
}

func TestLoadRequiresRemote(t *testing.T) {
	path := writeConfig(t, `
remote:
  base_url: https://example.supabase.co
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error without api_key")
	}

	path = writeConfig(t, `
remote:
  api_key: test-key
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error without base_url")
	}
}

func TestEnvOnlyRemote(t *testing.T) {
	t.Setenv("ARCLIST_REMOTE_BASE_URL", "https://env.supabase.co")
	t.Setenv("ARCLIST_REMOTE_API_KEY", "env-key")

	// No config file at all: the environment alone must satisfy the
	// required remote settings.
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with env-only remote config failed: %v", err)
	}
	if cfg.Remote.BaseURL != "https://env.supabase.co" {
		t.Errorf("BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.APIKey != "env-key" {
		t.Errorf("APIKey = %q", cfg.Remote.APIKey)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	t.Setenv("ARCLIST_REMOTE_API_KEY", "env-key")

	path := writeConfig(t, `
remote:
  base_url: https://file.supabase.co
  api_key: file-key
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Remote.BaseURL != "https://file.supabase.co" {
		t.Errorf("BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want the environment to win", cfg.Remote.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
