// internal/config/normalize.go
package config

import "strings"

// Defaults applied by Normalize.
const (
	DefaultBaseURL      = "https://portal.example-jobs.de"
	DefaultPollMs       = 1000
	DefaultMaxPerTick   = 3
	DefaultKeepAliveMin = 4
	DefaultPort         = 3001
	DefaultStorageState = "state/storage-state.json"
	DefaultLogLevel     = "info"

	// MinKeepAliveMin is the floor for the keep-alive interval.
	MinKeepAliveMin = 2
)

// Normalize fills defaults and canonicalizes values.
// It is allowed to mutate configuration.
// It MUST be called before Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	w := &cfg.Watcher

	if w.Portal.BaseURL == "" {
		w.Portal.BaseURL = DefaultBaseURL
	}
	w.Portal.BaseURL = strings.TrimRight(w.Portal.BaseURL, "/")

	if w.Portal.StorageState == "" {
		w.Portal.StorageState = DefaultStorageState
	}

	if w.Poll.IntervalMs == 0 {
		w.Poll.IntervalMs = DefaultPollMs
	}
	if w.Poll.MaxPerTick == 0 {
		w.Poll.MaxPerTick = DefaultMaxPerTick
	}

	if w.KeepAlive.IntervalMin == 0 {
		w.KeepAlive.IntervalMin = DefaultKeepAliveMin
	}
	if w.KeepAlive.IntervalMin < MinKeepAliveMin {
		w.KeepAlive.IntervalMin = MinKeepAliveMin
	}

	if w.Health.Port == 0 {
		w.Health.Port = DefaultPort
	}

	if w.Browser.Headless == nil {
		headless := true
		w.Browser.Headless = &headless
	}

	if w.LogLevel == "" {
		w.LogLevel = DefaultLogLevel
	}
}
