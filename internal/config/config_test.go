// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg.Server.BaseURL != "http://localhost:8000" {
		t.Errorf("default base url = %q", cfg.Server.BaseURL)
	}
	if cfg.Agent.Mode != "general" {
		t.Errorf("default mode = %q", cfg.Agent.Mode)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
base_url = "https://api.oncosight.example"
timeout_secs = 30

[agent]
mode = "research"

[ui]
theme = "dark"
greeting = "Welcome back"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.BaseURL != "https://api.oncosight.example" {
		t.Errorf("base url = %q", cfg.Server.BaseURL)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout())
	}
	if cfg.Agent.Mode != "research" || cfg.UI.Theme != "dark" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	// Unset values keep their defaults.
	if cfg.Agent.DeepTimeoutSecs != 360 {
		t.Errorf("deep timeout default lost: %d", cfg.Agent.DeepTimeoutSecs)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[server]\nbase_url = \"http://from-file:8000\"\n"), 0600)

	t.Setenv("ONCOSIGHT_BASE_URL", "http://from-env:9000")
	t.Setenv("ONCOSIGHT_MODE", "patient")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.BaseURL != "http://from-env:9000" {
		t.Errorf("env override lost: %q", cfg.Server.BaseURL)
	}
	if cfg.Agent.Mode != "patient" {
		t.Errorf("env mode override lost: %q", cfg.Agent.Mode)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Server.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.Server.BaseURL = "not-a-url" }},
		{"ftp scheme", func(c *Config) { c.Server.BaseURL = "ftp://host" }},
		{"zero timeout", func(c *Config) { c.Server.TimeoutSecs = 0 }},
		{"unknown mode", func(c *Config) { c.Agent.Mode = "turbo" }},
		{"unknown theme", func(c *Config) { c.UI.Theme = "sepia" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Server.BaseURL = "https://api.oncosight.example"
	cfg.UI.Greeting = "hello"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Server.BaseURL != cfg.Server.BaseURL || got.UI.Greeting != "hello" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := Save(DefaultConfig(), path); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan Config, 1)
	stop := make(chan struct{})
	defer close(stop)

	err := Watch(path, func(c Config) {
		select {
		case reloaded <- c:
		default:
		}
	}, stop)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)

	cfg := DefaultConfig()
	cfg.Agent.Mode = "research"
	if err := Save(cfg, path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-reloaded:
		if got.Agent.Mode != "research" {
			t.Errorf("reloaded mode = %q", got.Agent.Mode)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback never fired")
	}
}
