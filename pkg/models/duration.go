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
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

var errInvalidDuration = errors.New("invalid duration value")

// Duration accepts both Go duration strings ("300ms") and raw nanosecond
// numbers in config files.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	return d.fromAny(v)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v interface{}
	if err := node.Decode(&v); err != nil {
		return err
	}

	return d.fromAny(v)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) fromAny(v interface{}) error {
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case int:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

// configFile mirrors Config with Duration-typed tunables so config files can
// use duration strings. Both codecs decode through it.
type configFile struct {
	Targets []string `json:"targets" yaml:"targets"`

	DiscoveryWorkers  int      `json:"discovery_workers" yaml:"discovery_workers"`
	CollectionWorkers int      `json:"collection_workers" yaml:"collection_workers"`
	ProbeTimeout      Duration `json:"probe_timeout" yaml:"probe_timeout"`
	TaskDeadline      Duration `json:"task_deadline" yaml:"task_deadline"`
	GlobalDeadline    Duration `json:"global_deadline" yaml:"global_deadline"`
	QueuePollInterval Duration `json:"queue_poll_interval" yaml:"queue_poll_interval"`
	MaxRetries        int      `json:"max_retries" yaml:"max_retries"`

	Credentials map[ProtocolFamily]Credential `json:"credentials" yaml:"credentials"`

	Logging LogConfig `json:"logging" yaml:"logging"`
}

func (f *configFile) toConfig(c *Config) {
	c.Targets = f.Targets
	c.DiscoveryWorkers = f.DiscoveryWorkers
	c.CollectionWorkers = f.CollectionWorkers
	c.ProbeTimeout = time.Duration(f.ProbeTimeout)
	c.TaskDeadline = time.Duration(f.TaskDeadline)
	c.GlobalDeadline = time.Duration(f.GlobalDeadline)
	c.QueuePollInterval = time.Duration(f.QueuePollInterval)
	c.MaxRetries = f.MaxRetries
	c.Credentials = f.Credentials
	c.Logging = f.Logging
}

func (c *Config) UnmarshalJSON(data []byte) error {
	var aux configFile
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	aux.toConfig(c)

	return nil
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var aux configFile
	if err := node.Decode(&aux); err != nil {
		return err
	}

	aux.toConfig(c)

	return nil
}
