package cache

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config exposes the tunables of the cache engine.
type Config struct {
	// GracePeriod is how long a retired entry (zero subscribers) keeps its
	// data before it is dropped. Resubscribing within the grace period
	// resurrects the data. Must be greater than 0.
	GracePeriod time.Duration `yaml:"grace_period"`

	// RetiredCapacity bounds how many retired entries are parked at once.
	// Must be greater than 0.
	RetiredCapacity int `yaml:"retired_capacity"`

	// FetchTimeout caps the duration of a single network fetch. Zero
	// disables the cap.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// DefaultConfig returns a Config with sensible defaults for an admin UI
// backend.
func DefaultConfig() Config {
	return Config{
		GracePeriod:     30 * time.Second,
		RetiredCapacity: 512,
		FetchTimeout:    15 * time.Second,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if c.GracePeriod <= 0 {
		return &ConfigError{Field: "GracePeriod", Message: "must be greater than 0"}
	}
	if c.RetiredCapacity <= 0 {
		return &ConfigError{Field: "RetiredCapacity", Message: "must be greater than 0"}
	}
	if c.FetchTimeout < 0 {
		return &ConfigError{Field: "FetchTimeout", Message: "must be non-negative"}
	}
	return nil
}

// LoadConfig reads a YAML config file, applies environment overrides, and
// validates the result. A missing file is not an error: defaults plus
// environment variables apply.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		// Durations are parsed from strings ("30s", "5m"); yaml.v3 has no
		// native time.Duration support.
		var raw struct {
			GracePeriod     string `yaml:"grace_period"`
			RetiredCapacity *int   `yaml:"retired_capacity"`
			FetchTimeout    string `yaml:"fetch_timeout"`
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if raw.GracePeriod != "" {
			d, err := time.ParseDuration(raw.GracePeriod)
			if err != nil {
				return Config{}, fmt.Errorf("parse config %s: grace_period: %w", path, err)
			}
			cfg.GracePeriod = d
		}
		if raw.RetiredCapacity != nil {
			cfg.RetiredCapacity = *raw.RetiredCapacity
		}
		if raw.FetchTimeout != "" {
			d, err := time.ParseDuration(raw.FetchTimeout)
			if err != nil {
				return Config{}, fmt.Errorf("parse config %s: fetch_timeout: %w", path, err)
			}
			cfg.FetchTimeout = d
		}
	}

	applyEnvironmentOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvironmentOverrides lets environment variables take precedence over
// file values.
func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("CATALOG_CACHE_GRACE_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.GracePeriod = d
		}
	}
	if v := os.Getenv("CATALOG_CACHE_RETIRED_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RetiredCapacity = n
		}
	}
	if v := os.Getenv("CATALOG_CACHE_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.FetchTimeout = d
		}
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
