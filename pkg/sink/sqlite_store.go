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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/assetradar/assetradar/pkg/models"
)

const deviceSchema = `
CREATE TABLE IF NOT EXISTS devices (
	id TEXT PRIMARY KEY,
	address TEXT NOT NULL,
	hostname TEXT,
	mac TEXT,
	serial_number TEXT,
	protocol_used TEXT NOT NULL,
	classification TEXT,
	fields JSON,
	first_seen DATETIME NOT NULL,
	last_seen DATETIME NOT NULL,
	seen_count INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_devices_serial ON devices(serial_number);
CREATE INDEX IF NOT EXISTS idx_devices_mac ON devices(mac);
CREATE INDEX IF NOT EXISTS idx_devices_hostname ON devices(hostname);
CREATE INDEX IF NOT EXISTS idx_devices_address ON devices(address);
`

// SQLiteStore persists device records in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(deviceSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) FindBySerial(ctx context.Context, serial string) (*models.DeviceRecord, error) {
	return s.findBy(ctx, "serial_number", serial)
}

func (s *SQLiteStore) FindByMAC(ctx context.Context, mac string) (*models.DeviceRecord, error) {
	return s.findBy(ctx, "mac", mac)
}

func (s *SQLiteStore) FindByHostname(ctx context.Context, hostname string) (*models.DeviceRecord, error) {
	return s.findBy(ctx, "hostname", hostname)
}

func (s *SQLiteStore) FindByAddress(ctx context.Context, addr string) (*models.DeviceRecord, error) {
	return s.findBy(ctx, "address", addr)
}

func (s *SQLiteStore) findBy(ctx context.Context, column, key string) (*models.DeviceRecord, error) {
	if key == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT id, address, hostname, mac, serial_number, protocol_used,
		classification, fields, first_seen, last_seen, seen_count
		FROM devices WHERE %s = ? ORDER BY last_seen DESC LIMIT 1`, column)

	row := s.db.QueryRowContext(ctx, query, key)

	return scanRecord(row)
}

func (s *SQLiteStore) Insert(ctx context.Context, record *models.DeviceRecord) error {
	fields, err := marshalFields(record.Fields)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO devices
		(id, address, hostname, mac, serial_number, protocol_used, classification, fields, first_seen, last_seen, seen_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Address, record.Hostname, record.MAC, record.SerialNumber,
		record.ProtocolUsed, record.Classification, fields,
		record.FirstSeen.UTC().Format(time.RFC3339), record.LastSeen.UTC().Format(time.RFC3339),
		record.SeenCount)

	return err
}

func (s *SQLiteStore) Update(ctx context.Context, record *models.DeviceRecord) error {
	fields, err := marshalFields(record.Fields)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `UPDATE devices SET
		address = ?, hostname = ?, mac = ?, serial_number = ?, protocol_used = ?,
		classification = ?, fields = ?, last_seen = ?, seen_count = ?
		WHERE id = ?`,
		record.Address, record.Hostname, record.MAC, record.SerialNumber,
		record.ProtocolUsed, record.Classification, fields,
		record.LastSeen.UTC().Format(time.RFC3339), record.SeenCount, record.ID)

	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func marshalFields(fields map[string]string) ([]byte, error) {
	if len(fields) == 0 {
		return []byte("{}"), nil
	}

	return json.Marshal(fields)
}

func scanRecord(row *sql.Row) (*models.DeviceRecord, error) {
	var (
		record                       models.DeviceRecord
		hostname, mac, serial, class sql.NullString
		fieldsRaw                    []byte
		firstSeen, lastSeen          string
	)

	err := row.Scan(&record.ID, &record.Address, &hostname, &mac, &serial,
		&record.ProtocolUsed, &class, &fieldsRaw, &firstSeen, &lastSeen, &record.SeenCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	record.Hostname = hostname.String
	record.MAC = mac.String
	record.SerialNumber = serial.String
	record.Classification = class.String

	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &record.Fields); err != nil {
			return nil, err
		}
	}

	if record.FirstSeen, err = time.Parse(time.RFC3339, firstSeen); err != nil {
		return nil, err
	}

	if record.LastSeen, err = time.Parse(time.RFC3339, lastSeen); err != nil {
		return nil, err
	}

	return &record, nil
}
