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
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/assetradar/assetradar/pkg/logger"
	"github.com/assetradar/assetradar/pkg/models"
)

// Outcome reports what an upsert did.
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeUpdated  Outcome = "updated"
)

var (
	ErrSinkClosed = errors.New("sink: closed")
	errNilRecord  = errors.New("sink: nil record")
)

// Result is the answer to a single upsert.
type Result struct {
	Outcome Outcome
	Key     string
}

type upsertRequest struct {
	ctx    context.Context
	record *models.DeviceRecord
	reply  chan upsertReply
}

type upsertReply struct {
	result Result
	err    error
}

// Sink serializes all upserts through one writer goroutine so concurrent
// workers resolving to the same existing record can never race a
// read-modify-write.
type Sink struct {
	store     DeviceStore
	requests  chan upsertRequest
	done      chan struct{}
	closeOnce sync.Once
	logger    logger.Logger
}

func New(store DeviceStore, log logger.Logger) *Sink {
	s := &Sink{
		store:    store,
		requests: make(chan upsertRequest),
		done:     make(chan struct{}),
		logger:   log,
	}

	go s.writerLoop()

	return s
}

// Upsert resolves the record against existing entries and merges or inserts.
// Safe to call from any goroutine; calls are serialized inside the sink.
func (s *Sink) Upsert(ctx context.Context, record *models.DeviceRecord) (Result, error) {
	if record == nil {
		return Result{}, errNilRecord
	}

	req := upsertRequest{
		ctx:    ctx,
		record: record,
		reply:  make(chan upsertReply, 1),
	}

	select {
	case s.requests <- req:
	case <-s.done:
		return Result{}, ErrSinkClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case reply := <-req.reply:
		return reply.result, reply.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Close stops the writer goroutine. Pending Upsert calls fail with
// ErrSinkClosed. Idempotent.
func (s *Sink) Close() error {
	var err error

	s.closeOnce.Do(func() {
		close(s.done)
		err = s.store.Close()
	})

	return err
}

func (s *Sink) writerLoop() {
	for {
		select {
		case <-s.done:
			return
		case req := <-s.requests:
			result, err := s.upsert(req.ctx, req.record)
			req.reply <- upsertReply{result: result, err: err}
		}
	}
}

func (s *Sink) upsert(ctx context.Context, record *models.DeviceRecord) (Result, error) {
	existing, err := s.resolve(ctx, record)
	if err != nil {
		return Result{}, err
	}

	if existing != nil {
		existing.Merge(record)

		if err := s.store.Update(ctx, existing); err != nil {
			return Result{}, err
		}

		s.logger.Debug().
			Str("key", existing.ID).
			Str("addr", record.Address).
			Int("seen_count", existing.SeenCount).
			Msg("Merged device record into existing entry")

		return Result{Outcome: OutcomeUpdated, Key: existing.ID}, nil
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	now := record.CollectedAt
	if now.IsZero() {
		now = time.Now()
	}

	record.FirstSeen = now
	record.LastSeen = now
	record.SeenCount = 1
	record.MAC = record.NormalizedMAC()

	if err := s.store.Insert(ctx, record); err != nil {
		return Result{}, err
	}

	s.logger.Debug().Str("key", record.ID).Str("addr", record.Address).Msg("Inserted new device record")

	return Result{Outcome: OutcomeInserted, Key: record.ID}, nil
}

// resolve walks the identity chain: serial, MAC, hostname, address. Each step
// runs only when the previous produced no match. This ordering is what keeps
// one physical machine to one row across DHCP churn and hostname changes.
func (s *Sink) resolve(ctx context.Context, record *models.DeviceRecord) (*models.DeviceRecord, error) {
	if record.HasUsableSerial() {
		existing, err := s.store.FindBySerial(ctx, record.SerialNumber)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			return existing, nil
		}
	}

	if mac := record.NormalizedMAC(); mac != "" {
		existing, err := s.store.FindByMAC(ctx, mac)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			return existing, nil
		}
	}

	if record.Hostname != "" {
		existing, err := s.store.FindByHostname(ctx, record.Hostname)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			return existing, nil
		}
	}

	if record.Address != "" {
		existing, err := s.store.FindByAddress(ctx, record.Address)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			return existing, nil
		}
	}

	return nil, nil
}
