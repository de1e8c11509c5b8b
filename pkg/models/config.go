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
	"errors"
	"time"
)

const (
	DefaultDiscoveryWorkers  = 20
	DefaultCollectionWorkers = 12
	DefaultProbeTimeout      = 300 * time.Millisecond
	DefaultTaskDeadline      = 5 * time.Second
	DefaultGlobalDeadline    = 5 * time.Minute
	DefaultQueuePollInterval = 250 * time.Millisecond
	DefaultMaxRetries        = 1
)

var (
	errNoTargets          = errors.New("config: at least one target is required")
	errNegativeWorkers    = errors.New("config: worker counts must be positive")
	errDeadlineTooShort   = errors.New("config: global deadline must exceed the per-task deadline")
	errBadCredentialShape = errors.New("config: credential requires a username or a community string")
)

// Config drives a single pipeline run. Zero values are filled by ApplyDefaults
// before validation.
type Config struct {
	Targets []string `json:"targets" yaml:"targets"`

	DiscoveryWorkers  int           `json:"discovery_workers" yaml:"discovery_workers"`
	CollectionWorkers int           `json:"collection_workers" yaml:"collection_workers"`
	ProbeTimeout      time.Duration `json:"probe_timeout" yaml:"probe_timeout"`
	TaskDeadline      time.Duration `json:"task_deadline" yaml:"task_deadline"`
	GlobalDeadline    time.Duration `json:"global_deadline" yaml:"global_deadline"`
	QueuePollInterval time.Duration `json:"queue_poll_interval" yaml:"queue_poll_interval"`
	MaxRetries        int           `json:"max_retries" yaml:"max_retries"`

	Credentials map[ProtocolFamily]Credential `json:"credentials" yaml:"credentials"`

	Logging LogConfig `json:"logging" yaml:"logging"`
}

// LogConfig mirrors pkg/logger's configuration so it can be embedded in the
// pipeline config file.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Debug  bool   `json:"debug" yaml:"debug"`
	Output string `json:"output" yaml:"output"`
}

// ApplyDefaults fills zero-valued tunables with production defaults.
func (c *Config) ApplyDefaults() {
	if c.DiscoveryWorkers == 0 {
		c.DiscoveryWorkers = DefaultDiscoveryWorkers
	}

	if c.CollectionWorkers == 0 {
		c.CollectionWorkers = DefaultCollectionWorkers
	}

	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}

	if c.TaskDeadline == 0 {
		c.TaskDeadline = DefaultTaskDeadline
	}

	if c.GlobalDeadline == 0 {
		c.GlobalDeadline = DefaultGlobalDeadline
	}

	if c.QueuePollInterval == 0 {
		c.QueuePollInterval = DefaultQueuePollInterval
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
}

// Validate checks the config at the API boundary. Credentials are validated
// here once; downstream code never re-inspects their shape.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return errNoTargets
	}

	if c.DiscoveryWorkers < 0 || c.CollectionWorkers < 0 {
		return errNegativeWorkers
	}

	if c.GlobalDeadline > 0 && c.TaskDeadline > 0 && c.GlobalDeadline <= c.TaskDeadline {
		return errDeadlineTooShort
	}

	for family, cred := range c.Credentials {
		if family == ProtocolNetworkManagement {
			if cred.Community == "" && cred.Username == "" {
				return errBadCredentialShape
			}

			continue
		}

		if cred.Username == "" {
			return errBadCredentialShape
		}
	}

	return nil
}
