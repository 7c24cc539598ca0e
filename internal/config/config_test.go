package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPathMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.Search.Timeout() != 12*time.Second {
		t.Fatalf("expected 12s search timeout, got %v", cfg.Search.Timeout())
	}
	if cfg.Search.MaxResults != 8 {
		t.Fatalf("expected result cap 8, got %d", cfg.Search.MaxResults)
	}
	if len(cfg.Search.Instances) == 0 {
		t.Fatalf("expected default searx instances")
	}
}

func TestLoadFromPathReadsSearchSection(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, ".chloe.yaml")
	content := `port: 8080
search:
  instances:
    - "https://searx.example.org"
  timeout_seconds: 5
  max_results: 3
llm:
  base_url: "http://localhost:1337/v1"
  model: "deepseek-reasoning"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("unexpected port: %d", cfg.Port)
	}
	if len(cfg.Search.Instances) != 1 || cfg.Search.Instances[0] != "https://searx.example.org" {
		t.Fatalf("unexpected instances: %#v", cfg.Search.Instances)
	}
	if cfg.Search.Timeout() != 5*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.Search.Timeout())
	}
	if cfg.Search.MaxResults != 3 {
		t.Fatalf("unexpected max_results: %d", cfg.Search.MaxResults)
	}
	if cfg.LLM.Model != "deepseek-reasoning" {
		t.Fatalf("unexpected llm model: %s", cfg.LLM.Model)
	}
}
