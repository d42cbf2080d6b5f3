package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quinlang/quin/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMissingFileGivesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("a missing file is not an error: %v", err)
	}
	if cfg.Backend != "vm" {
		t.Errorf("expected default backend vm, got %q", cfg.Backend)
	}
	if cfg.MemorySize != 0 || cfg.MaxCallDepth != 0 || cfg.CheckInterval != 0 {
		t.Errorf("expected zero values for unset limits, got %+v", cfg)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
memory_size: 32768
max_call_depth: 64
check_interval: 500
backend: "8086"
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MemorySize != 32768 {
		t.Errorf("memory_size: expected 32768, got %d", cfg.MemorySize)
	}
	if cfg.MaxCallDepth != 64 {
		t.Errorf("max_call_depth: expected 64, got %d", cfg.MaxCallDepth)
	}
	if cfg.CheckInterval != 500 {
		t.Errorf("check_interval: expected 500, got %d", cfg.CheckInterval)
	}
	if cfg.Backend != "8086" {
		t.Errorf("backend: expected 8086, got %q", cfg.Backend)
	}
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "memory_size: 4096\n")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MemorySize != 4096 {
		t.Errorf("expected 4096, got %d", cfg.MemorySize)
	}
	if cfg.Backend != "vm" {
		t.Errorf("expected default backend, got %q", cfg.Backend)
	}
}

func TestInvalidYaml(t *testing.T) {
	path := writeConfig(t, "memory_size: [not a number\n")
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"negative_memory", "memory_size: -1\n"},
		{"tiny_memory", "memory_size: 64\n"},
		{"negative_depth", "max_call_depth: -5\n"},
		{"negative_interval", "check_interval: -1\n"},
		{"unknown_backend", "backend: \"arm\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			if _, err := config.Load(path); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}
