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

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config

	cfg.ApplyDefaults()

	assert.Equal(t, DefaultDiscoveryWorkers, cfg.DiscoveryWorkers)
	assert.Equal(t, DefaultCollectionWorkers, cfg.CollectionWorkers)
	assert.Equal(t, DefaultProbeTimeout, cfg.ProbeTimeout)
	assert.Equal(t, DefaultTaskDeadline, cfg.TaskDeadline)
	assert.Equal(t, DefaultGlobalDeadline, cfg.GlobalDeadline)
	assert.Equal(t, DefaultQueuePollInterval, cfg.QueuePollInterval)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{DiscoveryWorkers: 3, ProbeTimeout: time.Second}

	cfg.ApplyDefaults()

	assert.Equal(t, 3, cfg.DiscoveryWorkers)
	assert.Equal(t, time.Second, cfg.ProbeTimeout)
}

func TestValidateRequiresTargets(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Error(t, cfg.Validate())

	cfg.Targets = []string{"10.0.0.1"}
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsNegativeWorkers(t *testing.T) {
	cfg := Config{Targets: []string{"10.0.0.1"}, DiscoveryWorkers: -1}
	cfg.ApplyDefaults()

	assert.Error(t, cfg.Validate())
}

func TestValidateGlobalDeadlineMustExceedTaskDeadline(t *testing.T) {
	cfg := Config{
		Targets:        []string{"10.0.0.1"},
		TaskDeadline:   time.Minute,
		GlobalDeadline: time.Second,
	}
	cfg.ApplyDefaults()

	assert.Error(t, cfg.Validate())
}

func TestValidateCredentialShapes(t *testing.T) {
	base := Config{Targets: []string{"10.0.0.1"}}
	base.ApplyDefaults()

	cfg := base
	cfg.Credentials = map[ProtocolFamily]Credential{
		ProtocolUnixShell: {Username: "admin", Password: "secret"},
	}
	assert.NoError(t, cfg.Validate())

	cfg = base
	cfg.Credentials = map[ProtocolFamily]Credential{
		ProtocolUnixShell: {Password: "secret"},
	}
	assert.Error(t, cfg.Validate(), "shell credential without a username")

	cfg = base
	cfg.Credentials = map[ProtocolFamily]Credential{
		ProtocolNetworkManagement: {Community: "public"},
	}
	assert.NoError(t, cfg.Validate(), "community string alone is a valid SNMP credential")

	cfg = base
	cfg.Credentials = map[ProtocolFamily]Credential{
		ProtocolNetworkManagement: {},
	}
	assert.Error(t, cfg.Validate())
}

func TestConfigUnmarshalJSONDurationStrings(t *testing.T) {
	payload := `{
		"targets": ["192.168.1.0/24"],
		"probe_timeout": "300ms",
		"task_deadline": "5s",
		"global_deadline": "5m",
		"queue_poll_interval": 250000000
	}`

	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(payload), &cfg))

	assert.Equal(t, []string{"192.168.1.0/24"}, cfg.Targets)
	assert.Equal(t, 300*time.Millisecond, cfg.ProbeTimeout)
	assert.Equal(t, 5*time.Second, cfg.TaskDeadline)
	assert.Equal(t, 5*time.Minute, cfg.GlobalDeadline)
	assert.Equal(t, 250*time.Millisecond, cfg.QueuePollInterval)
}

func TestConfigUnmarshalYAMLDurationStrings(t *testing.T) {
	payload := `
targets:
  - 10.0.0.1-50
discovery_workers: 10
probe_timeout: 150ms
task_deadline: 10s
credentials:
  UnixShell:
    username: scanner
    password: hunter2
`

	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(payload), &cfg))

	assert.Equal(t, []string{"10.0.0.1-50"}, cfg.Targets)
	assert.Equal(t, 10, cfg.DiscoveryWorkers)
	assert.Equal(t, 150*time.Millisecond, cfg.ProbeTimeout)
	assert.Equal(t, 10*time.Second, cfg.TaskDeadline)
	assert.Equal(t, "scanner", cfg.Credentials[ProtocolUnixShell].Username)
}

func TestConfigUnmarshalJSONRejectsBadDuration(t *testing.T) {
	var cfg Config

	err := json.Unmarshal([]byte(`{"probe_timeout": "fast"}`), &cfg)
	assert.Error(t, err)
}
