package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Ingest.ChunkSize != 800 || cfg.Ingest.ChunkOverlap != 100 {
		t.Errorf("default chunking = %d/%d", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if cfg.Chat.TopK != 4 {
		t.Errorf("default top_k = %d", cfg.Chat.TopK)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("default dimensions = %d", cfg.Embedding.Dimensions)
	}
}

func TestLoadExpandsRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "storage:\n  snapshot_dir: ./snapshot\n  ledger_path: ./db/ledger.db\ningest:\n  docs_dir: ./docs\n"
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Storage.SnapshotDir != filepath.Join(dir, "snapshot") {
		t.Errorf("snapshot_dir = %s", cfg.Storage.SnapshotDir)
	}
	if cfg.Ingest.DocsDir != filepath.Join(dir, "docs") {
		t.Errorf("docs_dir = %s", cfg.Ingest.DocsDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestConfigOmitsSecrets(t *testing.T) {
	// API keys are resolved from env vars named in config, never stored in it.
	var cfg Config
	ApplyDefaults(&cfg)
	if cfg.Embedding.APIKeyEnv == "" || cfg.LLM.APIKeyEnv == "" {
		t.Error("api key env names should default")
	}
}
