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
	"context"
	"time"

	"github.com/assetradar/assetradar/pkg/models"
)

// collectionWorker drains the collection queue, walking each task through
// classification and the protocol fallback chain until a record lands in the
// sink, the chain exhausts, or the task deadline fires.
func (p *Pipeline) collectionWorker(ctx context.Context, id int, queue chan *models.CollectionTask) {
	log := p.logger.WithFields(map[string]interface{}{
		"component": "collection",
		"worker":    id,
	})

	for {
		recovered := func() (recovered bool) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("Collection worker panicked, restarting")

					recovered = true
				}
			}()

			p.collectionLoop(ctx, queue)

			return false
		}()

		if !recovered {
			return
		}
	}
}

func (p *Pipeline) collectionLoop(ctx context.Context, queue chan *models.CollectionTask) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-queue:
			if !ok {
				return
			}

			p.processTask(ctx, task, queue)
		}
	}
}

// processTask runs one collection cycle for a task. Each cycle attempts at
// most one protocol; tasks with remaining retries and untried protocols go
// back on the queue so one slow host never monopolizes a worker.
func (p *Pipeline) processTask(ctx context.Context, task *models.CollectionTask, queue chan *models.CollectionTask) {
	// The deadline starts when a worker first picks the task up and survives
	// re-enqueues, bounding the task's total lifetime.
	if task.Deadline.IsZero() {
		task.Deadline = time.Now().Add(p.config.TaskDeadline)
	}

	if time.Now().After(task.Deadline) {
		p.recoverTimedOutTask(ctx, task)
		p.finishTask()

		return
	}

	family := p.nextProtocol(ctx, task)
	if family == models.ProtocolUnknown {
		// Chain exhausted without a record.
		p.stats.incFailed()
		p.logger.Info().
			Str("address", task.Address).
			Int("attempts", len(task.AttemptedProtocols)).
			Msg("Collection exhausted protocol fallback chain")
		p.finishTask()

		return
	}

	taskCtx, cancel := context.WithDeadline(ctx, task.Deadline)
	record, failure := p.collect(taskCtx, task, family)

	cancel()

	if record != nil {
		p.storeRecord(ctx, task, record)
		p.finishTask()

		return
	}

	// A client returning neither a record nor a failure violates its
	// contract; treat it as a protocol failure so the task still terminates.
	if failure == nil {
		failure = &models.Failure{
			Kind:    models.FailureProtocol,
			Message: "client returned no record and no failure",
		}
	}

	p.logger.Debug().
		Str("address", task.Address).
		Str("protocol", string(family)).
		Str("failure", failure.String()).
		Msg("Protocol attempt failed")

	if failure.Kind == models.FailureTimeout {
		p.stats.incTimeoutErrors()
	}

	p.requeueOrFail(ctx, task, queue)
}

// nextProtocol picks the protocol for this cycle: the classifier's choice on
// the first attempt, then untried chain entries in order. ProtocolUnknown
// signals exhaustion.
func (p *Pipeline) nextProtocol(ctx context.Context, task *models.CollectionTask) models.ProtocolFamily {
	if len(task.AttemptedProtocols) == 0 {
		family := p.classifier.Classify(ctx, task.Address, task.OpenPorts)
		if family != models.ProtocolUnknown && !task.Attempted(family) {
			return family
		}
	}

	for _, family := range models.FallbackChain {
		if !task.Attempted(family) {
			return family
		}
	}

	return models.ProtocolUnknown
}

// collect performs a single protocol attempt, marking it attempted whatever
// the outcome.
func (p *Pipeline) collect(
	ctx context.Context,
	task *models.CollectionTask,
	family models.ProtocolFamily,
) (*models.DeviceRecord, *models.Failure) {
	task.MarkAttempted(family)
	p.stats.addAttempt(family)

	client := p.clients.Get(family)
	if client == nil {
		return nil, &models.Failure{
			Kind:    models.FailureProtocol,
			Message: "no client registered for " + string(family),
		}
	}

	return client.Collect(ctx, task.Address, p.config.Credentials[family])
}

// requeueOrFail re-enqueues a failed task when it still has retry budget and
// untried protocols, otherwise terminates it as failed. The worker still holds
// the task here, so queue occupancy never exceeds the number of addresses.
func (p *Pipeline) requeueOrFail(ctx context.Context, task *models.CollectionTask, queue chan *models.CollectionTask) {
	exhausted := true

	for _, family := range models.FallbackChain {
		if !task.Attempted(family) {
			exhausted = false
			break
		}
	}

	if exhausted || task.RetryCount >= task.MaxRetries {
		p.stats.incFailed()
		p.logger.Info().
			Str("address", task.Address).
			Int("attempts", len(task.AttemptedProtocols)).
			Msg("Collection failed for host")
		p.finishTask()

		return
	}

	task.RetryCount++

	select {
	case queue <- task:
	case <-ctx.Done():
		p.stats.incFailed()
		p.finishTask()
	}
}

// recoverTimedOutTask emits the synthetic record for a task whose deadline
// expired. The host was provably alive during discovery, so it is recorded
// rather than dropped.
func (p *Pipeline) recoverTimedOutTask(ctx context.Context, task *models.CollectionTask) {
	now := time.Now()
	record := &models.DeviceRecord{
		Address:      task.Address,
		ProtocolUsed: models.ProtocolTimeoutRecovery,
		Fields: map[string]string{
			"deadline_missed_by": now.Sub(task.Deadline).String(),
		},
		CollectedAt: now,
	}

	p.stats.incTimeoutErrors()
	p.logger.Warn().
		Str("address", task.Address).
		Msg("Task deadline expired, emitting partial record")

	p.storeRecord(ctx, task, record)
}

func (p *Pipeline) storeRecord(ctx context.Context, task *models.CollectionTask, record *models.DeviceRecord) {
	if record.CollectedAt.IsZero() {
		record.CollectedAt = time.Now()
	}

	result, err := p.sink.Upsert(ctx, record)
	if err != nil {
		p.stats.incFailed()
		p.logger.Error().Err(err).Str("address", task.Address).Msg("Failed to persist device record")

		return
	}

	p.stats.incCollected()
	p.notifyDevice(record)
	p.logger.Info().
		Str("address", task.Address).
		Str("protocol", record.ProtocolUsed).
		Str("outcome", string(result.Outcome)).
		Str("device_id", result.Key).
		Msg("Device record stored")
}

func (p *Pipeline) finishTask() {
	p.pendingTasks.Add(-1)
}
