package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDataDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	dir, err := cfg.DataDir()
	if err != nil {
		t.Fatalf("DataDir() error = %v", err)
	}
	if filepath.Base(dir) != ".codeeasy" || !filepath.IsAbs(dir) {
		t.Errorf("DataDir() = %q, want absolute path ending with .codeeasy", dir)
	}

	cfg.Server.DataDir = "/var/lib/codeeasy"
	if dir, _ := cfg.DataDir(); dir != "/var/lib/codeeasy" {
		t.Errorf("DataDir() = %q, want configured value", dir)
	}
}

func TestEnsureDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.DataDir = filepath.Join(t.TempDir(), "codeeasy")

	dir, err := cfg.EnsureDataDir()
	if err != nil {
		t.Fatalf("EnsureDataDir() error = %v", err)
	}
	for _, subdir := range []string{"logs", "data"} {
		if _, err := os.Stat(filepath.Join(dir, subdir)); err != nil {
			t.Errorf("EnsureDataDir() should create %s: %v", subdir, err)
		}
	}

	path, err := cfg.SQLitePath()
	if err != nil {
		t.Fatalf("SQLitePath() error = %v", err)
	}
	if path != filepath.Join(dir, "data", "codeeasy.db") {
		t.Errorf("SQLitePath() = %q", path)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "codeeasy.yaml")

	cfg := DefaultConfig()
	cfg.Judge.APIKey = "do-not-write"
	cfg.Server.Port = 9999

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("saved file is not valid YAML: %v", err)
	}
	if loaded.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", loaded.Server.Port)
	}
	if loaded.Judge.APIKey != "" {
		t.Error("API key must not be written to the config file")
	}
}
