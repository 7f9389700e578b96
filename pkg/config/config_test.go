package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()
	if cfg.Kernel.MaxEvents != 100000 {
		t.Fatalf("expected default max events 100000, got %d", cfg.Kernel.MaxEvents)
	}
	if cfg.Kernel.Strict {
		t.Fatal("expected strict mode off by default")
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clotho.yaml")
	yamlBody := "kernel:\n  max_events: 500\n  strict: true\nchaos:\n  workers: 8\n  count: 50\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	t.Setenv("CLOTHO_CONFIG_FILE", path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kernel.MaxEvents != 500 {
		t.Fatalf("expected max_events=500, got %d", cfg.Kernel.MaxEvents)
	}
	if !cfg.Kernel.Strict {
		t.Fatal("expected strict=true")
	}
	if cfg.Chaos.Workers != 8 {
		t.Fatalf("expected workers=8, got %d", cfg.Chaos.Workers)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clotho.yaml")
	if err := os.WriteFile(path, []byte("kernel:\n  max_events: 500\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	t.Setenv("CLOTHO_CONFIG_FILE", path)
	t.Setenv("CLOTHO_MAX_EVENTS", "77")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kernel.MaxEvents != 77 {
		t.Fatalf("expected env override max_events=77, got %d", cfg.Kernel.MaxEvents)
	}
}

func TestNormalizeRejectsNonPositiveCounts(t *testing.T) {
	cfg := &Config{Chaos: ChaosConfig{Count: 0}, Kernel: KernelConfig{MaxEvents: -1}}
	cfg.normalize()
	if cfg.Chaos.Count != 1 {
		t.Fatalf("expected count normalized to 1, got %d", cfg.Chaos.Count)
	}
	if cfg.Kernel.MaxEvents != 100000 {
		t.Fatalf("expected max events normalized to 100000, got %d", cfg.Kernel.MaxEvents)
	}
}
