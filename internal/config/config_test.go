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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "imprint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ".imprint", cfg.DataDir)
	assert.Equal(t, "warn", cfg.NearDuplicatePolicy)
	assert.Equal(t, uint64(100_000), cfg.MinRegisterStake)
	assert.Equal(t, uint64(50_000), cfg.MinFlagStake)
	assert.Equal(t, 4, cfg.SimilarityThreshold)
	assert.Equal(t, 64, cfg.MaxChainDepth)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
dataDir: /var/lib/imprint
authority: ledger-authority
nearDuplicatePolicy: block
minRegisterStake: 250000
similarityThreshold: 8
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/imprint", cfg.DataDir)
	assert.Equal(t, "ledger-authority", cfg.Authority)
	assert.Equal(t, "block", cfg.NearDuplicatePolicy)
	assert.Equal(t, uint64(250_000), cfg.MinRegisterStake)
	assert.Equal(t, 8, cfg.SimilarityThreshold)
	// Unset keys keep defaults
	assert.Equal(t, uint64(50_000), cfg.MinFlagStake)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "error reading config file")
}

func TestLoadConfigInvalidYaml(t *testing.T) {
	path := writeConfigFile(t, "dataDir: [unclosed")
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "error parsing config file")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "nearDuplicatePolicy: warn\n")
	t.Setenv("IMPRINT_NEAR_DUPLICATE_POLICY", "off")
	t.Setenv("IMPRINT_AUTHORITY", "env-authority")
	t.Setenv("IMPRINT_MIN_FLAG_STAKE", "75000")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "off", cfg.NearDuplicatePolicy)
	assert.Equal(t, "env-authority", cfg.Authority)
	assert.Equal(t, uint64(75_000), cfg.MinFlagStake)
}

func TestValidatePolicy(t *testing.T) {
	cfg := defaultConfig()
	cfg.NearDuplicatePolicy = "maybe"
	assert.ErrorContains(t, cfg.Validate(), "invalid nearDuplicatePolicy")
}

func TestValidateThreshold(t *testing.T) {
	cfg := defaultConfig()
	cfg.SimilarityThreshold = 65
	assert.ErrorContains(t, cfg.Validate(), "invalid similarityThreshold")
	cfg.SimilarityThreshold = -1
	assert.ErrorContains(t, cfg.Validate(), "invalid similarityThreshold")
	// Both distance bounds are valid thresholds
	cfg.SimilarityThreshold = 0
	assert.NoError(t, cfg.Validate())
	cfg.SimilarityThreshold = 64
	assert.NoError(t, cfg.Validate())
}

func TestValidateChainDepth(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxChainDepth = 0
	assert.ErrorContains(t, cfg.Validate(), "invalid maxChainDepth")
}

func TestValidateRetryAttempts(t *testing.T) {
	cfg := defaultConfig()
	cfg.RetryMaxAttempts = 0
	assert.ErrorContains(t, cfg.Validate(), "invalid retryMaxAttempts")
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := writeConfigFile(t, "nearDuplicatePolicy: maybe\n")
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "invalid nearDuplicatePolicy")
}
