package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_MODEL_KEY", "sk-test-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
model:
  name: gpt-4o-mini
  api_key: ${TEST_MODEL_KEY}
agent:
  max_iterations: 3
  context_memory: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Model.APIKey != "sk-test-123" {
		t.Errorf("expected expanded api key, got %q", cfg.Model.APIKey)
	}
	if cfg.Model.Name != "gpt-4o-mini" {
		t.Errorf("expected model name, got %q", cfg.Model.Name)
	}
	if cfg.Agent.MaxIterations != 3 {
		t.Errorf("expected max_iterations 3, got %d", cfg.Agent.MaxIterations)
	}
	if !cfg.Agent.ContextMemory {
		t.Error("expected context_memory true")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Agent.MaxIterations != 5 {
		t.Errorf("default max_iterations = %d, want 5", cfg.Agent.MaxIterations)
	}
	if cfg.Agent.MaxParallelTools != 4 {
		t.Errorf("default max_parallel_tools = %d, want 4", cfg.Agent.MaxParallelTools)
	}
	if cfg.Timeout() != 120*time.Second {
		t.Errorf("default timeout = %v, want 120s", cfg.Timeout())
	}
	if cfg.Assets.Dir == "" {
		t.Error("expected default assets dir")
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	_, err := FindConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"trace", false},
		{"debug", false},
		{"", false},
		{"INFO", false},
		{"warning", false},
		{"error", false},
		{"verbose", true},
	}

	for _, tt := range tests {
		_, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}
