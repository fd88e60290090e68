// Package config provides configuration management for the causelink engine.
//
// All empirically tuned constants (factor weights, tier-pair plausibility,
// level thresholds) live here as named configuration rather than hardcoded
// values. There is no process-wide singleton: callers build a Config and
// pass it into the engine explicitly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ecorisk/causelink/pkg/models"
)

// Environment variable names recognized by ApplyEnv.
const (
	EnvSimilarityThreshold = "CAUSELINK_SIMILARITY_THRESHOLD"
	EnvMinSamples          = "CAUSELINK_MIN_SAMPLES"
	EnvMaxReasons          = "CAUSELINK_MAX_REASONS"
	EnvCacheMaxEntries     = "CAUSELINK_CACHE_MAX_ENTRIES"
	EnvTrainTimeoutSec     = "CAUSELINK_TRAIN_TIMEOUT_SECONDS"
)

// GeneratorConfig controls candidate link generation.
type GeneratorConfig struct {
	// SimilarityThreshold is the minimum word-overlap similarity for a
	// candidate to be emitted (default 0.2).
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// ChainThreshold is the minimum similarity for each hop of a
	// causal-chain confirmation (default 0.2).
	ChainThreshold float64 `yaml:"chain_threshold"`
}

// EnsembleConfig controls training of the classifier ensemble.
type EnsembleConfig struct {
	// MinSamples is the minimum feedback record count for training (default 50).
	MinSamples int `yaml:"min_samples"`
	// HoldoutFraction of samples reserved for validation accuracy (default 0.2).
	HoldoutFraction float64 `yaml:"holdout_fraction"`
	// Seed makes tree construction deterministic. 0 means seed from time.
	Seed int64 `yaml:"seed"`
	// TrainTimeout bounds a whole training run (default 2 minutes).
	TrainTimeout time.Duration `yaml:"train_timeout"`
}

// ExplainConfig controls explanation rendering.
type ExplainConfig struct {
	// MaxReasons caps the top_reasons list (default 4).
	MaxReasons int `yaml:"max_reasons"`
	// ModerateThreshold and StrongThreshold bucket factor contributions
	// into weak/moderate/strong labels.
	ModerateThreshold float64 `yaml:"moderate_threshold"`
	StrongThreshold   float64 `yaml:"strong_threshold"`
}

// CacheConfig controls the link result cache.
type CacheConfig struct {
	// MaxEntries bounds the number of cached vocabulary snapshots (default 32).
	MaxEntries int `yaml:"max_entries"`
}

// Config holds the full engine configuration.
type Config struct {
	Generator  GeneratorConfig          `yaml:"generator"`
	Confidence *models.ConfidenceConfig `yaml:"confidence"`
	Ensemble   EnsembleConfig           `yaml:"ensemble"`
	Explain    ExplainConfig            `yaml:"explain"`
	Cache      CacheConfig              `yaml:"cache"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Generator: GeneratorConfig{
			SimilarityThreshold: 0.2,
			ChainThreshold:      0.2,
		},
		Confidence: models.DefaultConfidenceConfig(),
		Ensemble: EnsembleConfig{
			MinSamples:      50,
			HoldoutFraction: 0.2,
			TrainTimeout:    2 * time.Minute,
		},
		Explain: ExplainConfig{
			MaxReasons:        4,
			ModerateThreshold: 0.33,
			StrongThreshold:   0.66,
		},
		Cache: CacheConfig{
			MaxEntries: 32,
		},
	}
}

// LoadFile reads a YAML configuration file and overlays it on the defaults,
// then applies environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) // #nosec G304 -- path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides selected settings from CAUSELINK_* environment
// variables. Unparseable values are ignored.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvSimilarityThreshold); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Generator.SimilarityThreshold = f
		}
	}
	if v := os.Getenv(EnvMinSamples); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Ensemble.MinSamples = n
		}
	}
	if v := os.Getenv(EnvMaxReasons); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Explain.MaxReasons = n
		}
	}
	if v := os.Getenv(EnvCacheMaxEntries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.MaxEntries = n
		}
	}
	if v := os.Getenv(EnvTrainTimeoutSec); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Ensemble.TrainTimeout = time.Duration(n) * time.Second
		}
	}
}
