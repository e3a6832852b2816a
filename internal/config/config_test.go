package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Default()
	if cfg.Addr != want.Addr || cfg.TurnTimeout != want.TurnTimeout || cfg.Rules != want.Rules {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
addr: ":9000"
turn_timeout: 30s
rules:
  players: 2
  hand_size: 6
  deck_size: 24
  max_table_slots: 6
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("expected addr :9000, got %s", cfg.Addr)
	}
	if cfg.TurnTimeout != 30*time.Second {
		t.Fatalf("expected 30s turn timeout, got %s", cfg.TurnTimeout)
	}
	if cfg.Rules.DeckSize != 24 {
		t.Fatalf("expected 24-card deck, got %d", cfg.Rules.DeckSize)
	}
	// Unspecified values keep their defaults.
	if cfg.DBPath != Default().DBPath {
		t.Fatalf("expected default db path, got %s", cfg.DBPath)
	}
}

func TestLoadRejectsBadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
rules:
  players: 5
  hand_size: 6
  deck_size: 36
  max_table_slots: 6
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected invalid rules to fail")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("PORT", "7777")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7777" {
		t.Fatalf("expected :7777, got %s", cfg.Addr)
	}
}
