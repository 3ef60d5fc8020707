// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"docrecon/internal/lookup"
	"docrecon/internal/paths"
)

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format         string  `yaml:"format"`
		Verbose        bool    `yaml:"verbose"`
		Debug          bool    `yaml:"debug"`
		NoColor        bool    `yaml:"no_color"`
		Workers        int     `yaml:"workers"`
		MatchThreshold float64 `yaml:"match_threshold"`
		FieldThreshold float64 `yaml:"field_threshold"`
	} `yaml:"defaults"`

	// Scoring weights for fuzzy field comparison
	Scoring struct {
		EditWeight    float64 `yaml:"edit_weight"`
		JaccardWeight float64 `yaml:"jaccard_weight"`
		LCSWeight     float64 `yaml:"lcs_weight"`
	} `yaml:"scoring"`

	// Per-field weights applied when combining field scores
	FieldWeights map[string]float64 `yaml:"field_weights"`

	// Lookup source configurations, tried in order until one is enabled
	Lookups []lookup.Config `yaml:"lookups"`

	// Store selects the persistence backend
	Store struct {
		Backend     string `yaml:"backend"` // memory, file, or postgres
		Directory   string `yaml:"directory"`
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"store"`

	// Server settings for API mode
	Server struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		RevalidateCron  string `yaml:"revalidate_cron"`
		DebounceSeconds int    `yaml:"debounce_seconds"`
	} `yaml:"server"`
}

// LoadConfig loads configuration from a YAML file, applying defaults for
// anything the file omits.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{
		FieldWeights: make(map[string]float64),
	}

	// Set default values
	config.Defaults.Format = "text"
	config.Defaults.Workers = 4
	policy := lookup.DefaultScorePolicy()
	config.Defaults.MatchThreshold = policy.MatchThreshold
	config.Defaults.FieldThreshold = policy.FieldThreshold
	config.Scoring.EditWeight = policy.EditWeight
	config.Scoring.JaccardWeight = policy.JaccardWeight
	config.Scoring.LCSWeight = policy.LCSWeight
	config.Store.Backend = "file"
	config.Store.Directory = paths.GetDataDir()
	config.Server.Host = "127.0.0.1"
	config.Server.Port = 8080
	config.Server.DebounceSeconds = 2

	// If no config file specified, return default config
	if configPath == "" {
		return config, nil
	}

	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	candidates := []string{
		"docrecon.yaml",
		".docrecon.yaml",
		paths.GetConfigFile(),
	}
	for _, path := range candidates {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ValidateConfig checks the configuration for invalid combinations
func ValidateConfig(config *Config) error {
	switch config.Store.Backend {
	case "memory", "file", "postgres":
	default:
		return fmt.Errorf("unknown store backend: %s", config.Store.Backend)
	}
	if config.Store.Backend == "postgres" && config.Store.DatabaseURL == "" && os.Getenv("DATABASE_URL") == "" {
		return fmt.Errorf("postgres backend requires store.database_url or DATABASE_URL")
	}

	if t := config.Defaults.MatchThreshold; t < 0 || t > 1 {
		return fmt.Errorf("match_threshold must be between 0 and 1, got %v", t)
	}
	if t := config.Defaults.FieldThreshold; t < 0 || t > 1 {
		return fmt.Errorf("field_threshold must be between 0 and 1, got %v", t)
	}

	sum := config.Scoring.EditWeight + config.Scoring.JaccardWeight + config.Scoring.LCSWeight
	if sum <= 0 {
		return fmt.Errorf("scoring weights must sum to a positive value")
	}

	if config.Server.Port < 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	for i, lc := range config.Lookups {
		if !lc.Enabled {
			continue
		}
		if lc.KeyColumn == "" {
			return fmt.Errorf("lookup %d (%s) has no key_column", i, lc.System)
		}
	}
	return nil
}

// ScorePolicy builds the lookup scoring policy from the configured
// thresholds and weights.
func (c *Config) ScorePolicy() lookup.ScorePolicy {
	return lookup.ScorePolicy{
		EditWeight:     c.Scoring.EditWeight,
		JaccardWeight:  c.Scoring.JaccardWeight,
		LCSWeight:      c.Scoring.LCSWeight,
		MatchThreshold: c.Defaults.MatchThreshold,
		FieldThreshold: c.Defaults.FieldThreshold,
	}
}

// ActiveLookup returns the first enabled lookup configuration, or nil.
func (c *Config) ActiveLookup() *lookup.Config {
	for i := range c.Lookups {
		if c.Lookups[i].Enabled {
			return &c.Lookups[i]
		}
	}
	return nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration.
// This is the shared helper used by both the CLI and the web server.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		cfg, _ = LoadConfig("")
	}
	return cfg
}
