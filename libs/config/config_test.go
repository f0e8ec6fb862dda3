package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type nestedTestConfig struct {
	Addr    string   `yaml:"addr"`
	Retries int      `yaml:"retries"`
	Timeout Duration `yaml:"timeout"`
}

type testConfig struct {
	Name     string           `yaml:"name"`
	Debug    bool             `yaml:"debug"`
	Rate     float64          `yaml:"rate"`
	Server   nestedTestConfig `yaml:"server"`
	Override string           `yaml:"override" env:"CUSTOM_OVERRIDE"`
	Tags     []string         `yaml:"tags"`
}

func writeConfigFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
}

func TestLoadConfigFromFile(t *testing.T) {
	writeConfigFile(t, `
name: voltshare
debug: true
rate: 0.5
server:
  addr: "localhost:9000"
  retries: 3
  timeout: 45s
tags: ["a", "b"]
`)

	var cfg testConfig
	if err := LoadConfig(&cfg); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Name != "voltshare" || !cfg.Debug || cfg.Rate != 0.5 {
		t.Fatalf("unexpected top-level values: %+v", cfg)
	}
	if cfg.Server.Addr != "localhost:9000" || cfg.Server.Retries != 3 {
		t.Fatalf("unexpected nested values: %+v", cfg.Server)
	}
	if cfg.Server.Timeout.Std() != 45*time.Second {
		t.Fatalf("duration not parsed from yaml: %v", cfg.Server.Timeout)
	}
	if len(cfg.Tags) != 2 {
		t.Fatalf("slice not loaded: %v", cfg.Tags)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	writeConfigFile(t, `
name: from-file
server:
  addr: "localhost:9000"
  timeout: 45s
`)
	t.Setenv("NAME", "from-env")
	t.Setenv("SERVER_ADDR", "localhost:9100")
	t.Setenv("SERVER_TIMEOUT", "2m")
	t.Setenv("CUSTOM_OVERRIDE", "tagged")

	var cfg testConfig
	if err := LoadConfig(&cfg); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Name != "from-env" {
		t.Fatalf("env should win over file, got %q", cfg.Name)
	}
	if cfg.Server.Addr != "localhost:9100" {
		t.Fatalf("nested env key not applied, got %q", cfg.Server.Addr)
	}
	if cfg.Server.Timeout.Std() != 2*time.Minute {
		t.Fatalf("duration env override not applied: %v", cfg.Server.Timeout)
	}
	if cfg.Override != "tagged" {
		t.Fatalf("explicit env tag not honored, got %q", cfg.Override)
	}
}

func TestLoadConfigEnvOnly(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SERVER_RETRIES", "7")

	var cfg testConfig
	if err := LoadConfig(&cfg); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Retries != 7 {
		t.Fatalf("env-only load failed: %d", cfg.Server.Retries)
	}
}

func TestLoadConfigRejectsBadValue(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SERVER_RETRIES", "not-a-number")

	var cfg testConfig
	if err := LoadConfig(&cfg); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	if err := LoadConfig(testConfig{}); err == nil {
		t.Fatalf("expected error for non-pointer target")
	}
}
