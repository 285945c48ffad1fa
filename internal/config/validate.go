// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration and MUST run after Normalize().
func Validate(cfg *Config) error {
	w := &cfg.Watcher

	// Credentials are the only hard requirement; everything else defaults.
	if w.Portal.Username == "" || w.Portal.Password == "" {
		return fmt.Errorf("portal credentials required: set %s and %s", EnvUsername, EnvPassword)
	}

	u, err := url.Parse(w.Portal.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url %q: %w", w.Portal.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url %q: scheme must be http or https", w.Portal.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url %q: host required", w.Portal.BaseURL)
	}

	if w.Poll.IntervalMs < 0 {
		return fmt.Errorf("poll interval_ms must be >= 0, got %d", w.Poll.IntervalMs)
	}
	if w.Poll.MaxPerTick < 1 {
		return fmt.Errorf("poll max_per_tick must be >= 1, got %d", w.Poll.MaxPerTick)
	}

	if w.Health.Port < 1 || w.Health.Port > 65535 {
		return fmt.Errorf("health port %d out of range", w.Health.Port)
	}

	switch strings.ToLower(w.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q: must be debug, info, warn or error", w.LogLevel)
	}

	return nil
}
