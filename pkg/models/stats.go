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

import "time"

// PipelineStats is a point-in-time snapshot of pipeline counters. The live
// counters are owned by the orchestrator and updated under a single lock;
// snapshots are plain values safe to hand to subscribers.
type PipelineStats struct {
	Discovered    int64 `json:"discovered"`
	Collected     int64 `json:"collected"`
	Failed        int64 `json:"failed"`
	Skipped       int64 `json:"skipped"`
	TimeoutErrors int64 `json:"timeout_errors"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// AttemptsByProtocol counts every protocol attempt, successful or not.
	AttemptsByProtocol map[ProtocolFamily]int64 `json:"attempts_by_protocol,omitempty"`
}

// SuccessRate returns collected/discovered as a percentage, 0 when nothing was
// discovered yet.
func (s *PipelineStats) SuccessRate() float64 {
	if s.Discovered == 0 {
		return 0
	}

	return float64(s.Collected) / float64(s.Discovered) * 100
}

// ThroughputPerMinute returns collected records per minute of elapsed run time.
func (s *PipelineStats) ThroughputPerMinute() float64 {
	end := s.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}

	elapsed := end.Sub(s.StartedAt).Minutes()
	if elapsed <= 0 {
		return 0
	}

	return float64(s.Collected) / elapsed
}
