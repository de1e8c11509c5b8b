/*
 * Copyright 2026 the AssetRadar Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetradar/assetradar/pkg/models"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfigTargetsFlagOnly(t *testing.T) {
	cfg, err := loadConfig(context.Background(), "", "10.0.0.1,10.0.0.2-5")
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2-5"}, cfg.Targets)
	assert.Equal(t, models.DefaultDiscoveryWorkers, cfg.DiscoveryWorkers)
}

// A config file without a targets key is still usable when -targets supplies
// them.
func TestLoadConfigTargetsFlagSupplementsFile(t *testing.T) {
	path := writeConfig(t, "scanner.json", `{
		"discovery_workers": 6,
		"probe_timeout": "200ms"
	}`)

	cfg, err := loadConfig(context.Background(), path, "192.168.1.0/24")
	require.NoError(t, err)

	assert.Equal(t, []string{"192.168.1.0/24"}, cfg.Targets)
	assert.Equal(t, 6, cfg.DiscoveryWorkers)
	assert.Equal(t, 200*time.Millisecond, cfg.ProbeTimeout)
}

func TestLoadConfigFlagOverridesFileTargets(t *testing.T) {
	path := writeConfig(t, "scanner.json", `{"targets": ["10.9.9.9"]}`)

	cfg, err := loadConfig(context.Background(), path, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.1"}, cfg.Targets)
}

func TestLoadConfigNoTargetsAnywhere(t *testing.T) {
	path := writeConfig(t, "scanner.json", `{"discovery_workers": 4}`)

	_, err := loadConfig(context.Background(), path, "")
	assert.Error(t, err)
}
