// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Watcher WatcherConfig `yaml:"watcher"`
}

type WatcherConfig struct {
	Portal    PortalConfig    `yaml:"portal"`
	Poll      PollConfig      `yaml:"poll"`
	KeepAlive KeepAliveConfig `yaml:"keepalive"`
	Health    HealthConfig    `yaml:"health"`
	Browser   BrowserConfig   `yaml:"browser"`
	LogLevel  string          `yaml:"log_level"`
}

// ---- PORTAL ----

type PortalConfig struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// StorageState is the path of the persisted session blob.
	StorageState string `yaml:"storage_state"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
	MaxPerTick int `yaml:"max_per_tick"`
}

// ---- KEEPALIVE ----

type KeepAliveConfig struct {
	IntervalMin int `yaml:"interval_min"`
}

// ---- HEALTH ----

type HealthConfig struct {
	Port int `yaml:"port"`
}

// ---- BROWSER ----

type BrowserConfig struct {
	// Headless is opt-out; nil means headless.
	Headless *bool `yaml:"headless"`
}

// Load reads a YAML config file. An empty path yields a zero config,
// which is usable once ApplyEnv and Normalize have run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config read: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	return cfg, nil
}
