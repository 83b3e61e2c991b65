// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/oncosight/oncosight-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete client configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Agent   AgentConfig   `toml:"agent"`
	UI      UIConfig      `toml:"ui"`
	Storage StorageConfig `toml:"storage"`
}

// ServerConfig points the client at the backend.
type ServerConfig struct {
	// BaseURL is the backend root, e.g. "https://api.oncosight.example".
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the per-attempt request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
	// HealthIntervalSecs is the background reachability probe cadence.
	HealthIntervalSecs int `toml:"health_interval_secs"`
}

// AgentConfig selects the agent answering questions.
type AgentConfig struct {
	// Mode is "general", "patient", or "research".
	Mode string `toml:"mode"`
	// DeepTimeoutSecs is the timeout for the patient and research agents.
	DeepTimeoutSecs int `toml:"deep_timeout_secs"`
}

// UIConfig controls presentation.
type UIConfig struct {
	// Theme is "dark", "light", or "auto".
	Theme string `toml:"theme"`
	// Greeting seeds new conversations; empty uses the built-in text.
	Greeting string `toml:"greeting"`
	// PlainMode skips the full-screen UI and uses the line-based REPL.
	PlainMode bool `toml:"plain_mode"`
}

// StorageConfig controls local state.
type StorageConfig struct {
	// Dir is the state directory; empty uses ~/.oncosight.
	Dir string `toml:"dir"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			BaseURL:            "http://localhost:8000",
			TimeoutSecs:        60,
			HealthIntervalSecs: 120,
		},
		Agent: AgentConfig{
			Mode:            "general",
			DeepTimeoutSecs: 360,
		},
		UI: UIConfig{
			Theme: "auto",
		},
	}
}

// DefaultDir returns the default state directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".oncosight")
	}
	return filepath.Join(home, ".oncosight")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.toml")
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the config file at path (the default location when empty),
// applies environment overrides, and validates. A missing file is not an
// error: defaults plus environment apply.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays ONCOSIGHT_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ONCOSIGHT_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("ONCOSIGHT_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.TimeoutSecs = n
		}
	}
	if v := os.Getenv("ONCOSIGHT_MODE"); v != "" {
		cfg.Agent.Mode = v
	}
	if v := os.Getenv("ONCOSIGHT_THEME"); v != "" {
		cfg.UI.Theme = v
	}
	if v := os.Getenv("ONCOSIGHT_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server.base_url %q", c.Server.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url must be http or https, got %q", u.Scheme)
	}
	if c.Server.TimeoutSecs <= 0 {
		return fmt.Errorf("server.timeout_secs must be positive, got %d", c.Server.TimeoutSecs)
	}
	if c.Agent.DeepTimeoutSecs <= 0 {
		return fmt.Errorf("agent.deep_timeout_secs must be positive, got %d", c.Agent.DeepTimeoutSecs)
	}
	switch c.Agent.Mode {
	case "general", "patient", "research":
	default:
		return fmt.Errorf("agent.mode must be general, patient, or research, got %q", c.Agent.Mode)
	}
	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return fmt.Errorf("ui.theme must be dark, light, or auto, got %q", c.UI.Theme)
	}
	return nil
}

// =============================================================================
// CONVENIENCE ACCESSORS
// =============================================================================

// Timeout returns the request timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// DeepTimeout returns the patient/research agent timeout as a duration.
func (c Config) DeepTimeout() time.Duration {
	return time.Duration(c.Agent.DeepTimeoutSecs) * time.Second
}

// HealthInterval returns the probe cadence as a duration.
func (c Config) HealthInterval() time.Duration {
	return time.Duration(c.Server.HealthIntervalSecs) * time.Second
}

// StateDir returns the state directory, falling back to the default.
func (c Config) StateDir() string {
	if c.Storage.Dir != "" {
		return c.Storage.Dir
	}
	return DefaultDir()
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration atomically.
func Save(cfg Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
