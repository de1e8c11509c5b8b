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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetradar/assetradar/pkg/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "devices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func testRecord() *models.DeviceRecord {
	now := time.Now().UTC().Truncate(time.Second)

	return &models.DeviceRecord{
		ID:           "dev-1",
		Address:      "10.0.0.1",
		Hostname:     "web01",
		MAC:          "AA:BB:CC:DD:EE:FF",
		SerialNumber: "SN-001",
		ProtocolUsed: string(models.ProtocolUnixShell),
		Fields:       map[string]string{"os": "Ubuntu 24.04"},
		FirstSeen:    now,
		LastSeen:     now,
		SeenCount:    1,
	}
}

func TestSQLiteStoreInsertAndFind(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testRecord()))

	bySerial, err := store.FindBySerial(ctx, "SN-001")
	require.NoError(t, err)
	require.NotNil(t, bySerial)
	assert.Equal(t, "dev-1", bySerial.ID)
	assert.Equal(t, "web01", bySerial.Hostname)
	assert.Equal(t, map[string]string{"os": "Ubuntu 24.04"}, bySerial.Fields)

	byMAC, err := store.FindByMAC(ctx, "AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	require.NotNil(t, byMAC)
	assert.Equal(t, "dev-1", byMAC.ID)

	byHostname, err := store.FindByHostname(ctx, "web01")
	require.NoError(t, err)
	require.NotNil(t, byHostname)

	byAddress, err := store.FindByAddress(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, byAddress)
}

func TestSQLiteStoreFindMissing(t *testing.T) {
	store := newTestSQLiteStore(t)

	record, err := store.FindBySerial(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestSQLiteStoreEmptyKeysNeverMatch(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	record := testRecord()
	record.Hostname = ""
	require.NoError(t, store.Insert(ctx, record))

	found, err := store.FindByHostname(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSQLiteStoreUpdate(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	record := testRecord()
	require.NoError(t, store.Insert(ctx, record))

	record.Address = "10.0.0.99"
	record.SeenCount = 2
	record.LastSeen = record.LastSeen.Add(time.Hour)
	require.NoError(t, store.Update(ctx, record))

	found, err := store.FindBySerial(ctx, "SN-001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "10.0.0.99", found.Address)
	assert.Equal(t, 2, found.SeenCount)
	assert.Equal(t, record.FirstSeen, found.FirstSeen)
}

func TestSQLiteStoreRoundTripTimes(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	record := testRecord()
	require.NoError(t, store.Insert(ctx, record))

	found, err := store.FindByAddress(ctx, record.Address)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.FirstSeen.Equal(record.FirstSeen))
	assert.True(t, found.LastSeen.Equal(record.LastSeen))
}
