// internal/config/env.go
package config

import (
	"os"
	"strconv"
	"strings"
)

// Recognized environment variables. Environment always wins over the file.
const (
	EnvUsername     = "JOBWATCH_USERNAME"
	EnvPassword     = "JOBWATCH_PASSWORD"
	EnvBaseURL      = "JOBWATCH_BASE_URL"
	EnvPollMs       = "JOBWATCH_POLL_MS"
	EnvMaxPerTick   = "JOBWATCH_MAX_PER_TICK"
	EnvKeepAliveMin = "JOBWATCH_KEEPALIVE_MIN"
	EnvPort         = "JOBWATCH_PORT"
	EnvStorageState = "JOBWATCH_STORAGE_STATE"
	EnvHeadless     = "JOBWATCH_HEADLESS"
	EnvLogLevel     = "JOBWATCH_LOG_LEVEL"
)

// ApplyEnv overlays environment variables onto cfg.
// It MUST run before Normalize so env values participate in defaulting.
func ApplyEnv(cfg *Config) {
	w := &cfg.Watcher

	w.Portal.Username = envString(EnvUsername, w.Portal.Username)
	w.Portal.Password = envString(EnvPassword, w.Portal.Password)
	w.Portal.BaseURL = envString(EnvBaseURL, w.Portal.BaseURL)
	w.Portal.StorageState = envString(EnvStorageState, w.Portal.StorageState)

	w.Poll.IntervalMs = envInt(EnvPollMs, w.Poll.IntervalMs)
	w.Poll.MaxPerTick = envInt(EnvMaxPerTick, w.Poll.MaxPerTick)
	w.KeepAlive.IntervalMin = envInt(EnvKeepAliveMin, w.KeepAlive.IntervalMin)
	w.Health.Port = envInt(EnvPort, w.Health.Port)

	if v, ok := envBool(EnvHeadless); ok {
		w.Browser.Headless = &v
	}
	w.LogLevel = envString(EnvLogLevel, w.LogLevel)
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string) (bool, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
