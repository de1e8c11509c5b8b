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

package pipeline

import (
	"sync"
	"time"

	"github.com/assetradar/assetradar/pkg/models"
)

// statsTracker owns the live pipeline counters. All updates go through this
// one lock with short critical sections; snapshots are value copies.
type statsTracker struct {
	mu    sync.Mutex
	stats models.PipelineStats
}

func newStatsTracker() *statsTracker {
	return &statsTracker{
		stats: models.PipelineStats{
			AttemptsByProtocol: make(map[models.ProtocolFamily]int64),
		},
	}
}

func (t *statsTracker) incDiscovered() {
	t.mu.Lock()
	t.stats.Discovered++
	t.mu.Unlock()
}

func (t *statsTracker) incCollected() {
	t.mu.Lock()
	t.stats.Collected++
	t.mu.Unlock()
}

func (t *statsTracker) incFailed() {
	t.mu.Lock()
	t.stats.Failed++
	t.mu.Unlock()
}

func (t *statsTracker) incSkipped() {
	t.mu.Lock()
	t.stats.Skipped++
	t.mu.Unlock()
}

func (t *statsTracker) incTimeoutErrors() {
	t.mu.Lock()
	t.stats.TimeoutErrors++
	t.mu.Unlock()
}

func (t *statsTracker) addAttempt(family models.ProtocolFamily) {
	t.mu.Lock()
	t.stats.AttemptsByProtocol[family]++
	t.mu.Unlock()
}

func (t *statsTracker) markStarted(now time.Time) {
	t.mu.Lock()
	t.stats.StartedAt = now
	t.mu.Unlock()
}

func (t *statsTracker) markFinished(now time.Time) {
	t.mu.Lock()
	t.stats.FinishedAt = now
	t.mu.Unlock()
}

func (t *statsTracker) snapshot() models.PipelineStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.stats

	snap.AttemptsByProtocol = make(map[models.ProtocolFamily]int64, len(t.stats.AttemptsByProtocol))
	for k, v := range t.stats.AttemptsByProtocol {
		snap.AttemptsByProtocol[k] = v
	}

	return snap
}
