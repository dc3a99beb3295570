package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() should validate, got: %v", err)
	}
	if cfg.RoundDuration() != 30*time.Second {
		t.Errorf("round duration = %v, want 30s", cfg.RoundDuration())
	}
	if cfg.ReconnectGrace() != 10*time.Second {
		t.Errorf("reconnect grace = %v, want 10s", cfg.ReconnectGrace())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty name", func(c *Config) { c.Name = "" }},
		{"zero round", func(c *Config) { c.RoundSeconds = 0 }},
		{"negative grace", func(c *Config) { c.ReconnectGraceSeconds = -1 }},
		{"zero buttons", func(c *Config) { c.ButtonCount = 0 }},
		{"min over max button size", func(c *Config) { c.MinButtonSize = 70 }},
		{"canvas smaller than button", func(c *Config) { c.CanvasHeight = 40 }},
		{"zero name length", func(c *Config) { c.MaxRoomNameLength = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() should fail for %s", tc.name)
			}
		})
	}
}

func TestManagerFallsBackToBuiltinDefault(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	def := m.GetDefault()
	if def == nil || def.RoundSeconds != 30 {
		t.Fatalf("default config = %+v, want compiled-in values", def)
	}
}

func TestManagerSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	cfg := Default()
	cfg.Name = "blitz"
	cfg.RoundSeconds = 10
	if err := m.SaveConfig("blitz", cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	// A fresh manager must find it on disk.
	m2, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	loaded, err := m2.LoadConfig("blitz")
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if loaded.RoundSeconds != 10 {
		t.Errorf("round_seconds = %d, want 10", loaded.RoundSeconds)
	}
}

func TestManagerSaveRejectsInvalid(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	cfg := Default()
	cfg.RoundSeconds = 0
	if err := m.SaveConfig("broken", cfg); err == nil {
		t.Error("SaveConfig() should reject an invalid config")
	}
}

func TestLoadConfigNotFound(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	if _, err := m.LoadConfig("nope"); err == nil {
		t.Error("LoadConfig() should fail for an unknown name")
	}
}

func TestLoadConfigRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	if _, err := m.LoadConfig("bad"); err == nil {
		t.Error("LoadConfig() should fail for malformed JSON")
	}
}

func TestListConfigsIncludesDefault(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	infos, err := m.ListConfigs()
	if err != nil {
		t.Fatalf("ListConfigs() error: %v", err)
	}
	found := false
	for _, info := range infos {
		if info.ConfigID == "default" {
			found = true
		}
	}
	if !found {
		t.Error("ListConfigs() should always report the default config")
	}
}
