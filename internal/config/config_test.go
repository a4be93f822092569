package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{"returns default when not set", "TEST_KEY_UNSET", "default", "", "default"},
		{"returns env value when set", "TEST_KEY_SET", "default", "custom", "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{"unset", "", 42},
		{"valid", "100", 100},
		{"invalid", "not-a-number", 42},
		{"negative", "-5", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("TEST_INT", tt.envValue)
			}
			if got := getEnvInt("TEST_INT", 42); got != tt.want {
				t.Errorf("getEnvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     bool
	}{
		{"unset", "", true},
		{"false", "false", false},
		{"zero", "0", false},
		{"invalid", "maybe", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("TEST_BOOL", tt.envValue)
			}
			if got := getEnvBool("TEST_BOOL", true); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Judge.Backend != "piston" {
		t.Errorf("Judge.Backend = %q, want piston", cfg.Judge.Backend)
	}
	if cfg.JudgeTimeout() != 30*time.Second {
		t.Errorf("JudgeTimeout() = %v, want 30s", cfg.JudgeTimeout())
	}
	if cfg.CompileTimeout() != 10*time.Second || cfg.RunTimeout() != 3*time.Second {
		t.Errorf("stage timeouts = %v/%v", cfg.CompileTimeout(), cfg.RunTimeout())
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage.Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Queue.Enabled {
		t.Error("Queue should be disabled by default")
	}
	if cfg.Server.RateLimit != 0 {
		t.Errorf("Server.RateLimit = %d, want 0 (unthrottled)", cfg.Server.RateLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"judge0 backend", func(c *Config) { c.Judge.Backend = "judge0" }, ""},
		{"unknown backend", func(c *Config) { c.Judge.Backend = "sphere" }, "unknown judge backend"},
		{"zero timeout", func(c *Config) { c.Judge.TimeoutSeconds = 0 }, "judge timeout"},
		{"timeout above bound", func(c *Config) { c.Judge.TimeoutSeconds = 31 }, "judge timeout"},
		{"timeout at bound", func(c *Config) { c.Judge.TimeoutSeconds = 30 }, ""},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }, "unknown storage driver"},
		{"postgres without url", func(c *Config) { c.Storage.Driver = "postgres" }, "DATABASE_URL"},
		{"postgres with url", func(c *Config) {
			c.Storage.Driver = "postgres"
			c.Storage.DatabaseURL = "postgres://localhost/codeeasy"
		}, ""},
		{"rate limit disabled", func(c *Config) { c.Server.RateLimit = 0 }, ""},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }, "rate limit"},
		{"judge limits", func(c *Config) {
			c.Judge.MaxConcurrent = 4
			c.Judge.RatePerSecond = 5
		}, ""},
		{"negative judge concurrency", func(c *Config) { c.Judge.MaxConcurrent = -1 }, "judge limits"},
		{"queue without workers", func(c *Config) {
			c.Queue.Enabled = true
			c.Queue.Workers = 0
		}, "queue workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "codeeasy.yaml")
	yamlContent := `server:
  port: 9090
  log_level: debug
content:
  root: /srv/tracks
judge:
  backend: judge0
  url: https://judge0.example.com
  timeout_seconds: 20
storage:
  driver: local
`
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CODEEASY_PORT", "7000")
	t.Setenv("JUDGE0_API_KEY", "secret")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want env override 7000", cfg.Server.Port)
	}
	if cfg.Server.LogLevel != "debug" || cfg.Content.Root != "/srv/tracks" {
		t.Errorf("file values not applied: %+v %+v", cfg.Server, cfg.Content)
	}
	if cfg.Judge.Backend != "judge0" || cfg.Judge.URL != "https://judge0.example.com" || cfg.Judge.APIKey != "secret" {
		t.Errorf("Judge = %+v", cfg.Judge)
	}
	if cfg.JudgeTimeout() != 20*time.Second {
		t.Errorf("JudgeTimeout() = %v", cfg.JudgeTimeout())
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.test" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	// Defaults survive for keys the file leaves out.
	if cfg.Judge.RunTimeoutSeconds != 3 {
		t.Errorf("RunTimeoutSeconds = %d, want default 3", cfg.Judge.RunTimeoutSeconds)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("STORAGE_DRIVER=local\nCODEEASY_TEST_DOTENV=1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("STORAGE_DRIVER")
		os.Unsetenv("CODEEASY_TEST_DOTENV")
	})

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Driver != "local" {
		t.Errorf("Storage.Driver = %q, want local from .env", cfg.Storage.Driver)
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("judge:\n  timeout_seconds: 90\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject a timeout above 30s")
	}

	if err := os.WriteFile(path, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Errorf("Load() error = %v, want parse error", err)
	}
}
