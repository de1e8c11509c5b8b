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

// Package sink deduplicates collected device records against the persistence
// collaborator and upserts them. Identity resolution order is the core
// correctness property here: hardware serial, then MAC, then hostname, then
// address, first match wins.
package sink

//go:generate mockgen -destination=mock_store.go -package=sink github.com/assetradar/assetradar/pkg/sink DeviceStore

import (
	"context"

	"github.com/assetradar/assetradar/pkg/models"
)

// DeviceStore is the persistence collaborator. Implementations only need
// key lookups and writes; the resolution order is enforced by the sink, not
// the store.
type DeviceStore interface {
	FindBySerial(ctx context.Context, serial string) (*models.DeviceRecord, error)
	FindByMAC(ctx context.Context, mac string) (*models.DeviceRecord, error)
	FindByHostname(ctx context.Context, hostname string) (*models.DeviceRecord, error)
	FindByAddress(ctx context.Context, addr string) (*models.DeviceRecord, error)
	Insert(ctx context.Context, record *models.DeviceRecord) error
	Update(ctx context.Context, record *models.DeviceRecord) error
	Close() error
}
