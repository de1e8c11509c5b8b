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

// Package models provides the shared data model for the discovery and
// collection pipeline.
package models

import "time"

// ProtocolFamily identifies the collection strategy used against a host.
type ProtocolFamily string

const (
	ProtocolWindowsManagement ProtocolFamily = "WindowsManagement"
	ProtocolUnixShell         ProtocolFamily = "UnixShell"
	ProtocolNetworkManagement ProtocolFamily = "NetworkManagement"
	ProtocolHTTPProbe         ProtocolFamily = "HTTPProbe"
	ProtocolUnknown           ProtocolFamily = "Unknown"

	// ProtocolTimeoutRecovery marks a synthetic record emitted when the
	// per-task deadline expired before any protocol attempt completed.
	ProtocolTimeoutRecovery = "timeout-recovery"
)

// FallbackChain is the ordered list of protocol families a collection task
// walks after the classifier-selected protocol fails.
var FallbackChain = []ProtocolFamily{
	ProtocolWindowsManagement,
	ProtocolUnixShell,
	ProtocolNetworkManagement,
	ProtocolHTTPProbe,
}

// DiscoveryTask is the unit of work for the discovery pool.
type DiscoveryTask struct {
	Address    string
	EnqueuedAt time.Time
}

// CollectionTask is the unit of work for the collection pool. Task state is
// only ever mutated by the worker currently holding the task.
type CollectionTask struct {
	Address            string
	Priority           float64
	RetryCount         int
	MaxRetries         int
	AttemptedProtocols map[ProtocolFamily]bool
	Deadline           time.Time
	EnqueuedAt         time.Time
	OpenPorts          []int
}

// Attempted reports whether the given protocol was already tried for this task.
func (t *CollectionTask) Attempted(p ProtocolFamily) bool {
	return t.AttemptedProtocols[p]
}

// MarkAttempted records a protocol attempt regardless of its outcome.
func (t *CollectionTask) MarkAttempted(p ProtocolFamily) {
	if t.AttemptedProtocols == nil {
		t.AttemptedProtocols = make(map[ProtocolFamily]bool)
	}

	t.AttemptedProtocols[p] = true
}

// Fingerprint is the result of an OS-fingerprint probe. Confidence is 0-100.
type Fingerprint struct {
	OSFamily   string `json:"os_family"`
	Vendor     string `json:"vendor,omitempty"`
	Confidence int    `json:"confidence"`
}

// Unknown reports whether the probe produced no usable signal.
func (f *Fingerprint) Unknown() bool {
	return f == nil || f.OSFamily == ""
}

// Credential is the single credential shape accepted per protocol family.
// It is validated at the pipeline API boundary, never sniffed downstream.
type Credential struct {
	Username  string `json:"username" yaml:"username"`
	Password  string `json:"password" yaml:"password"`
	Domain    string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Community string `json:"community,omitempty" yaml:"community,omitempty"`
}
