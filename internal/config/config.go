// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config is the explicit configuration passed into the ledger record store
// and verifier constructors. There is no hidden process-wide state: load it
// once at startup and hand it down
type Config struct {
	DataDir             string `yaml:"dataDir"             split_words:"true"`
	Authority           string `yaml:"authority"`
	PlatformName        string `yaml:"platformName"        split_words:"true"`
	NearDuplicatePolicy string `yaml:"nearDuplicatePolicy" split_words:"true"`
	MinRegisterStake    uint64 `yaml:"minRegisterStake"    split_words:"true"`
	MinFlagStake        uint64 `yaml:"minFlagStake"        split_words:"true"`
	SimilarityThreshold int    `yaml:"similarityThreshold" split_words:"true"`
	MaxChainDepth       int    `yaml:"maxChainDepth"       split_words:"true"`
	RetryMaxAttempts    int    `yaml:"retryMaxAttempts"    split_words:"true"`
	RetryBackoffMs      int    `yaml:"retryBackoffMs"      split_words:"true"`
	MetricsPort         uint   `yaml:"metricsPort"         split_words:"true"`
	MetricsBindAddr     string `yaml:"metricsBindAddr"     split_words:"true"`
	Tracing             bool   `yaml:"tracing"`
	TracingStdout       bool   `yaml:"tracingStdout"       split_words:"true"`
}

func defaultConfig() *Config {
	return &Config{
		DataDir:             ".imprint",
		Authority:           "",
		PlatformName:        "imprint",
		NearDuplicatePolicy: "warn",
		MinRegisterStake:    100_000,
		MinFlagStake:        50_000,
		SimilarityThreshold: 4,
		MaxChainDepth:       64,
		RetryMaxAttempts:    3,
		RetryBackoffMs:      100,
		MetricsPort:         12798,
		MetricsBindAddr:     "127.0.0.1",
	}
}

// LoadConfig loads configuration from an optional YAML file with
// environment variable overrides. When no file is given, well-known
// locations are checked
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()
	if configFile == "" {
		// Check for config file in this path: ~/.imprint/imprint.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".imprint", "imprint.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/imprint/imprint.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	if err := envconfig.Process("imprint", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks config invariants that are fatal at startup
func (c *Config) Validate() error {
	switch c.NearDuplicatePolicy {
	case "off", "warn", "block":
	default:
		return fmt.Errorf(
			"invalid nearDuplicatePolicy: %q (must be 'off', 'warn', or 'block')",
			c.NearDuplicatePolicy,
		)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 64 {
		return fmt.Errorf(
			"invalid similarityThreshold: %d (must be in [0,64])",
			c.SimilarityThreshold,
		)
	}
	if c.MaxChainDepth < 1 {
		return fmt.Errorf(
			"invalid maxChainDepth: %d (must be at least 1)",
			c.MaxChainDepth,
		)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf(
			"invalid retryMaxAttempts: %d (must be at least 1)",
			c.RetryMaxAttempts,
		)
	}
	return nil
}
