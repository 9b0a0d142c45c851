package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tailscale/hujson"
)

// Config holds persistctl's settings. It mirrors the shape of
// [persist.FileDataPersisterSettings], expressed as JSON so it can be
// checked into a project alongside the document it manages.
type Config struct {
	Path          string `json:"path"`
	NumRetries    int    `json:"num_retries,omitempty"`
	RetryDelayMS  int    `json:"retry_delay_ms,omitempty"`
	ExclusiveMode *bool  `json:"exclusive_mode,omitempty"`
}

// DefaultConfig returns persistctl's built-in defaults, matching
// [persist.DefaultSettings].
func DefaultConfig() Config {
	return Config{
		Path:         "persistctl.json",
		NumRetries:   3,
		RetryDelayMS: 100,
	}
}

// LoadConfig reads a JSONC (JSON-with-comments) config file at path. A
// missing file is not an error: the defaults are returned unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied, same trust boundary as argv
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return Config{}, fmt.Errorf("persistctl: read config %q: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("persistctl: invalid JSONC in %q: %w", path, err)
	}

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("persistctl: invalid config %q: %w", path, err)
	}

	return cfg, nil
}

// RetryDelay returns the configured retry delay as a [time.Duration].
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// Exclusive reports the configured exclusive-mode setting, defaulting to
// true when unset, matching [persist.DefaultSettings].
func (c Config) Exclusive() bool {
	if c.ExclusiveMode == nil {
		return true
	}

	return *c.ExclusiveMode
}
