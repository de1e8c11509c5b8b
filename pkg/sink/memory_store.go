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

package sink

import (
	"context"
	"strings"
	"sync"

	"github.com/assetradar/assetradar/pkg/models"
)

// InMemoryStore keeps device records in process memory. Used for tests and
// for one-shot scans where nothing needs to survive the run.
type InMemoryStore struct {
	mu         sync.RWMutex
	records    map[string]*models.DeviceRecord
	bySerial   map[string]string
	byMAC      map[string]string
	byHostname map[string]string
	byAddress  map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:    make(map[string]*models.DeviceRecord),
		bySerial:   make(map[string]string),
		byMAC:      make(map[string]string),
		byHostname: make(map[string]string),
		byAddress:  make(map[string]string),
	}
}

func (s *InMemoryStore) FindBySerial(_ context.Context, serial string) (*models.DeviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lookup(s.bySerial, strings.TrimSpace(serial)), nil
}

func (s *InMemoryStore) FindByMAC(_ context.Context, mac string) (*models.DeviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lookup(s.byMAC, strings.ToUpper(strings.TrimSpace(mac))), nil
}

func (s *InMemoryStore) FindByHostname(_ context.Context, hostname string) (*models.DeviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lookup(s.byHostname, hostname), nil
}

func (s *InMemoryStore) FindByAddress(_ context.Context, addr string) (*models.DeviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lookup(s.byAddress, addr), nil
}

func (s *InMemoryStore) lookup(index map[string]string, key string) *models.DeviceRecord {
	if key == "" {
		return nil
	}

	id, ok := index[key]
	if !ok {
		return nil
	}

	return copyRecord(s.records[id])
}

func (s *InMemoryStore) Insert(_ context.Context, record *models.DeviceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = copyRecord(record)
	s.reindex(record)

	return nil
}

func (s *InMemoryStore) Update(_ context.Context, record *models.DeviceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop the previous identity keys first; a device that moved to a new
	// address must not leave a stale index entry claiming the old one.
	if old, ok := s.records[record.ID]; ok {
		s.deindex(old)
	}

	s.records[record.ID] = copyRecord(record)
	s.reindex(record)

	return nil
}

// List returns every stored record. Test helper, not part of DeviceStore.
func (s *InMemoryStore) List() []*models.DeviceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.DeviceRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, copyRecord(r))
	}

	return out
}

func (s *InMemoryStore) Close() error {
	return nil
}

func (s *InMemoryStore) reindex(record *models.DeviceRecord) {
	if record.HasUsableSerial() {
		s.bySerial[strings.TrimSpace(record.SerialNumber)] = record.ID
	}

	if mac := record.NormalizedMAC(); mac != "" {
		s.byMAC[mac] = record.ID
	}

	if record.Hostname != "" {
		s.byHostname[record.Hostname] = record.ID
	}

	if record.Address != "" {
		s.byAddress[record.Address] = record.ID
	}
}

func (s *InMemoryStore) deindex(record *models.DeviceRecord) {
	if record.HasUsableSerial() {
		s.removeIndexEntry(s.bySerial, strings.TrimSpace(record.SerialNumber), record.ID)
	}

	if mac := record.NormalizedMAC(); mac != "" {
		s.removeIndexEntry(s.byMAC, mac, record.ID)
	}

	if record.Hostname != "" {
		s.removeIndexEntry(s.byHostname, record.Hostname, record.ID)
	}

	if record.Address != "" {
		s.removeIndexEntry(s.byAddress, record.Address, record.ID)
	}
}

// removeIndexEntry deletes a key only while it still points at this record;
// a key already claimed by another device is left alone.
func (s *InMemoryStore) removeIndexEntry(index map[string]string, key, id string) {
	if index[key] == id {
		delete(index, key)
	}
}

func copyRecord(record *models.DeviceRecord) *models.DeviceRecord {
	if record == nil {
		return nil
	}

	dup := *record

	if record.Fields != nil {
		dup.Fields = make(map[string]string, len(record.Fields))
		for k, v := range record.Fields {
			dup.Fields[k] = v
		}
	}

	return &dup
}
