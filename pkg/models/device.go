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
	"strings"
	"time"
)

// DeviceRecord is the normalized result of a successful collection.
type DeviceRecord struct {
	ID             string            `json:"id,omitempty"`
	Address        string            `json:"address"`
	Hostname       string            `json:"hostname,omitempty"`
	MAC            string            `json:"mac,omitempty"`
	SerialNumber   string            `json:"serial_number,omitempty"`
	ProtocolUsed   string            `json:"protocol_used"`
	Classification string            `json:"classification,omitempty"`
	Fields         map[string]string `json:"fields,omitempty"`
	FirstSeen      time.Time         `json:"first_seen"`
	LastSeen       time.Time         `json:"last_seen"`
	SeenCount      int               `json:"seen_count"`
	CollectedAt    time.Time         `json:"collected_at"`
}

// serialPlaceholders are vendor filler strings that must never participate in
// identity resolution.
var serialPlaceholders = map[string]bool{
	"":                       true,
	"unknown":                true,
	"n/a":                    true,
	"none":                   true,
	"default string":         true,
	"to be filled by o.e.m.": true,
}

// HasUsableSerial reports whether the record carries a serial number that can
// be trusted for identity resolution.
func (r *DeviceRecord) HasUsableSerial() bool {
	return !serialPlaceholders[strings.ToLower(strings.TrimSpace(r.SerialNumber))]
}

// NormalizedMAC returns the MAC address in canonical upper-case colon form, or
// an empty string when absent.
func (r *DeviceRecord) NormalizedMAC() string {
	mac := strings.TrimSpace(r.MAC)
	if mac == "" {
		return ""
	}

	mac = strings.ReplaceAll(mac, "-", ":")

	return strings.ToUpper(mac)
}

// Merge overlays the non-empty fields of other onto r, refreshing last-seen
// bookkeeping. Fields other does not supply are left untouched.
func (r *DeviceRecord) Merge(other *DeviceRecord) {
	if other.Address != "" {
		r.Address = other.Address
	}

	if other.Hostname != "" {
		r.Hostname = other.Hostname
	}

	if other.NormalizedMAC() != "" {
		r.MAC = other.NormalizedMAC()
	}

	if other.HasUsableSerial() {
		r.SerialNumber = strings.TrimSpace(other.SerialNumber)
	}

	if other.ProtocolUsed != "" {
		r.ProtocolUsed = other.ProtocolUsed
	}

	if other.Classification != "" {
		r.Classification = other.Classification
	}

	for k, v := range other.Fields {
		if v == "" {
			continue
		}

		if r.Fields == nil {
			r.Fields = make(map[string]string, len(other.Fields))
		}

		r.Fields[k] = v
	}

	r.LastSeen = other.CollectedAt
	if r.LastSeen.IsZero() {
		r.LastSeen = time.Now()
	}

	r.CollectedAt = other.CollectedAt
	r.SeenCount++
}
