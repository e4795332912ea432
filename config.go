// config.go: Configuration for the Hermes write-through KV service cache
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultMaxBytes is the approximate memory budget applied when a
	// Config leaves MaxBytes unset (~2 MiB, matching the soft limit the
	// cache was sized for).
	DefaultMaxBytes = 2 * 1024 * 1024

	// DefaultBucketCount is a prime bucket count chosen to keep chains
	// short under the integer keyspace.
	DefaultBucketCount = 1031
)

// Config controls cache construction. The zero value is usable: LRU
// policy, 2 MiB budget, 1031 buckets.
type Config struct {
	Policy      Policy
	MaxBytes    int64
	BucketCount int
}

// fileConfig is the on-disk JSON shape of a cache configuration.
type fileConfig struct {
	Policy      string `json:"policy"`
	MaxBytes    int64  `json:"max_bytes"`
	BucketCount int    `json:"bucket_count"`
}

// withDefaults fills unset fields.
func (cfg Config) withDefaults() Config {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.BucketCount <= 0 {
		cfg.BucketCount = DefaultBucketCount
	}
	return cfg
}

// Validate reports configuration values that cannot produce a working
// cache. Defaults are applied by New, so zero values are not errors here.
func (cfg Config) Validate() error {
	if cfg.MaxBytes < 0 {
		return fmt.Errorf("max bytes must not be negative, got %d", cfg.MaxBytes)
	}
	if cfg.BucketCount < 0 {
		return fmt.Errorf("bucket count must not be negative, got %d", cfg.BucketCount)
	}
	if cfg.Policy < PolicyLRU || cfg.Policy > PolicyRandom {
		return fmt.Errorf("unknown eviction policy %d", int(cfg.Policy))
	}
	return nil
}

// LoadConfigFile reads a cache Config from a JSON file of the shape
// {"policy": "lru", "max_bytes": 2097152, "bucket_count": 1031}. Missing
// fields keep their zero value and are defaulted by New.
func LoadConfigFile(path string) (Config, error) {
	if filepath.Ext(path) != ".json" {
		return Config{}, fmt.Errorf("config file %s is not a .json file", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var fc fileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg := Config{MaxBytes: fc.MaxBytes, BucketCount: fc.BucketCount}
	if fc.Policy != "" {
		if cfg.Policy, err = ParsePolicy(fc.Policy); err != nil {
			return Config{}, fmt.Errorf("in %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("in %s: %w", path, err)
	}
	return cfg, nil
}
