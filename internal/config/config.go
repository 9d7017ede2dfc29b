// Package config loads the ambient settings the persistent overlay
// cache needs that spec.md leaves unspecified: where its bbolt store
// lives and how its per-collection-group bloom filters are sized.
// Persistence mechanics beyond the transactional store itself are out
// of scope (spec.md §1); this package only configures the one
// persistence mechanism the spec does require.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config is the top-level overlay cache configuration structure.
type Config struct {
	Store StoreConfig `yaml:"store"`
	Bloom BloomConfig `yaml:"bloom"`
}

// StoreConfig configures the bbolt-backed persistent overlay cache (C4).
type StoreConfig struct {
	Path           string `yaml:"path"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// BloomConfig sizes the per-(user, collectionGroup) existence filters
// boltcache keeps as a latency pre-check ahead of its range scans.
type BloomConfig struct {
	ExpectedOverlaysPerGroup uint    `yaml:"expectedOverlaysPerGroup"`
	FalsePositiveRate        float64 `yaml:"falsePositiveRate"`
}

// envConfig maps environment variables.
type envConfig struct {
	StorePath            string  `envconfig:"DOCOVERLAY_STORE_PATH"`
	StoreTimeoutSec       int     `envconfig:"DOCOVERLAY_STORE_TIMEOUT_SECONDS"`
	BloomExpectedOverlays uint    `envconfig:"DOCOVERLAY_BLOOM_EXPECTED_OVERLAYS"`
	BloomFalsePositive    float64 `envconfig:"DOCOVERLAY_BLOOM_FALSE_POSITIVE_RATE"`
}

// Load loads config in order: defaults -> YAML -> ENV (overrides).
// path may name a file that does not exist; a missing YAML file is not
// an error, matching the teacher's config loader.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}

	if err := overrideFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:           "docoverlay.db",
			TimeoutSeconds: 5,
		},
		Bloom: BloomConfig{
			ExpectedOverlaysPerGroup: 10_000,
			FalsePositiveRate:        0.01,
		},
	}
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config yaml: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal config yaml: %w", err)
	}

	return nil
}

func overrideFromEnv(cfg *Config) error {
	var e envConfig
	if err := envconfig.Process("", &e); err != nil {
		return fmt.Errorf("process env: %w", err)
	}

	if e.StorePath != "" {
		cfg.Store.Path = e.StorePath
	}
	if e.StoreTimeoutSec != 0 {
		cfg.Store.TimeoutSeconds = e.StoreTimeoutSec
	}
	if e.BloomExpectedOverlays != 0 {
		cfg.Bloom.ExpectedOverlaysPerGroup = e.BloomExpectedOverlays
	}
	if e.BloomFalsePositive != 0 {
		cfg.Bloom.FalsePositiveRate = e.BloomFalsePositive
	}

	return nil
}

func validate(cfg *Config) error {
	if cfg.Store.Path == "" {
		return errors.New("store.path is required")
	}
	if cfg.Store.TimeoutSeconds <= 0 {
		return errors.New("store.timeoutSeconds must be positive")
	}
	if cfg.Bloom.FalsePositiveRate <= 0 || cfg.Bloom.FalsePositiveRate >= 1 {
		return errors.New("bloom.falsePositiveRate must be in (0, 1)")
	}
	return nil
}
