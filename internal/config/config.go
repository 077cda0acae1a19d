package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where fixturelint looks for its config when --config is not given.
const DefaultPath = ".fixturelint.yaml"

// Config holds all fixturelint configuration.
type Config struct {
	// Scanning
	World WorldConfig `yaml:"world"`

	// Fixture and test detection, diagnostic selection
	Analysis AnalysisConfig `yaml:"analysis"`

	// Result cache
	Cache CacheConfig `yaml:"cache"`

	// Watch mode
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// WatchConfig configures `fixturelint watch`.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		World:    DefaultWorldConfig(),
		Analysis: DefaultAnalysisConfig(),
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(".fixturelint", "cache.db"),
		},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
		Logging: LoggingConfig{
			Level:  "",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.World.MaxConcurrency < 1 {
		return fmt.Errorf("world.max_concurrency must be positive, got %d", c.World.MaxConcurrency)
	}
	if len(c.World.TestGlobs) == 0 {
		return fmt.Errorf("world.test_globs must not be empty")
	}
	if c.Analysis.TestPrefix == "" {
		return fmt.Errorf("analysis.test_prefix must not be empty")
	}
	for _, code := range append(append([]string{}, c.Analysis.Select...), c.Analysis.Ignore...) {
		if !IsKnownCode(code) {
			return fmt.Errorf("unknown diagnostic code %q", code)
		}
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path must be set when the cache is enabled")
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("invalid watch.debounce %q: %w", c.Watch.Debounce, err)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("FIXTURELINT_CACHE"); path != "" {
		c.Cache.Path = path
	}
	if level := os.Getenv("FIXTURELINT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if env := os.Getenv("FIXTURELINT_WORKERS"); env != "" {
		if v, err := strconv.Atoi(env); err == nil && v > 0 {
			c.World.MaxConcurrency = v
		}
	}
}

// GetWatchDebounce returns the watch debounce interval as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 300 * time.Millisecond
	}
	return d
}

// Fingerprint hashes the settings that influence diagnostics, so cached
// results are discarded when they change.
func (c *Config) Fingerprint() string {
	data, err := yaml.Marshal(c.Analysis)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
