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

// Package pipeline implements the multi-phase host discovery and collection
// engine: a discovery worker pool probing liveness at high fan-out feeding a
// collection worker pool that walks protocol fallback chains, with results
// deduplicated through the sink. Discovery and collection overlap; there is
// no phase barrier between them.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/assetradar/assetradar/pkg/classify"
	"github.com/assetradar/assetradar/pkg/logger"
	"github.com/assetradar/assetradar/pkg/models"
	"github.com/assetradar/assetradar/pkg/protocols"
	"github.com/assetradar/assetradar/pkg/scan"
	"github.com/assetradar/assetradar/pkg/sink"
)

// State is the orchestrator lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateExpanding
	StateRunning
	StateDraining
	StateDone
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExpanding:
		return "expanding"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyRunning = errors.New("pipeline: already running")
	errNilSink        = errors.New("pipeline: sink is required")
)

// Subscriber receives progress from a running pipeline. Callbacks are invoked
// from pipeline goroutines and must not block.
type Subscriber interface {
	OnStats(stats models.PipelineStats)
	OnDevice(record *models.DeviceRecord)
}

// livenessProber is the discovery-phase view of pkg/scan's Prober.
type livenessProber interface {
	IsAlive(ctx context.Context, addr string) bool
	OpenPorts(ctx context.Context, addr string, ports []int) []int
}

// Pipeline owns both worker pools, the two queues, the stop signal, and the
// global deadline.
type Pipeline struct {
	config     models.Config
	expander   *scan.Expander
	prober     livenessProber
	classifier *classify.Classifier
	clients    protocols.Set
	sink       *sink.Sink
	logger     logger.Logger

	stats       *statsTracker
	subscribers []Subscriber
	state       atomic.Int32
	running     atomic.Bool

	stop     chan struct{}
	stopOnce sync.Once

	// pendingTasks counts collection tasks enqueued but not yet terminal,
	// including tasks currently held by a worker for retry.
	pendingTasks atomic.Int64
}

// New assembles a pipeline. The config must already be defaulted and
// validated; collaborators other than the sink may be nil-ish (an empty
// client set simply fails every protocol attempt).
func New(
	config models.Config,
	classifier *classify.Classifier,
	clients protocols.Set,
	resultSink *sink.Sink,
	log logger.Logger,
) (*Pipeline, error) {
	if resultSink == nil {
		return nil, errNilSink
	}

	return &Pipeline{
		config:     config,
		expander:   scan.NewExpander(log),
		prober:     scan.NewProber(config.ProbeTimeout, log),
		classifier: classifier,
		clients:    clients,
		sink:       resultSink,
		logger:     log,
		stats:      newStatsTracker(),
		stop:       make(chan struct{}),
	}, nil
}

// Subscribe registers a progress subscriber. Must be called before Run.
func (p *Pipeline) Subscribe(sub Subscriber) {
	p.subscribers = append(p.subscribers, sub)
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Stats returns a snapshot of the live counters.
func (p *Pipeline) Stats() models.PipelineStats {
	return p.stats.snapshot()
}

// Stop requests graceful cancellation. Idempotent and safe from any
// goroutine; workers exit within one queue-poll interval, letting in-flight
// network calls run to their own timeouts.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info().Msg("Stop requested")
		close(p.stop)
	})
}

// Run executes the whole pipeline and blocks until it drains, hits the global
// deadline, or is stopped. A failure against any single address never aborts
// the run; per-address outcomes surface only through stats and records.
func (p *Pipeline) Run(ctx context.Context) (models.PipelineStats, error) {
	if !p.running.CompareAndSwap(false, true) {
		return models.PipelineStats{}, ErrAlreadyRunning
	}

	runCtx, cancel := context.WithTimeout(ctx, p.config.GlobalDeadline)
	defer cancel()

	// Propagate the stop signal into the run context so every blocking
	// call observes it.
	go func() {
		select {
		case <-p.stop:
			cancel()
		case <-runCtx.Done():
		}
	}()

	p.stats.markStarted(time.Now())

	p.state.Store(int32(StateExpanding))

	addrs := p.expander.Expand(p.config.Targets)
	p.logger.Info().
		Int("targets", len(p.config.Targets)).
		Int("addresses", len(addrs)).
		Msg("Target expansion complete")

	queueCap := len(addrs)
	if queueCap == 0 {
		queueCap = 1
	}

	discoveryQueue := make(chan models.DiscoveryTask, queueCap)
	collectionQueue := make(chan *models.CollectionTask, queueCap)

	for _, addr := range addrs {
		discoveryQueue <- models.DiscoveryTask{Address: addr, EnqueuedAt: time.Now()}
	}

	close(discoveryQueue)

	p.state.Store(int32(StateRunning))

	var discoveryWG, collectionWG sync.WaitGroup

	for i := 0; i < p.config.DiscoveryWorkers; i++ {
		discoveryWG.Add(1)

		go func(id int) {
			defer discoveryWG.Done()

			p.discoveryWorker(runCtx, id, discoveryQueue, collectionQueue)
		}(i)
	}

	for i := 0; i < p.config.CollectionWorkers; i++ {
		collectionWG.Add(1)

		go func(id int) {
			defer collectionWG.Done()

			p.collectionWorker(runCtx, id, collectionQueue)
		}(i)
	}

	progressDone := make(chan struct{})
	go p.progressLoop(runCtx, progressDone)

	// Close the collection queue only after discovery has exited and no
	// task is pending; re-enqueues come from workers that still hold their
	// task, so pendingTasks cannot ever tick back up from zero.
	discoveryWG.Wait()
	p.state.Store(int32(StateDraining))
	p.logger.Debug().Msg("Discovery pool drained, waiting on collection queue")

	p.awaitCollectionDrain(runCtx)

	// Close only on a clean drain. On cancellation a worker may still hold a
	// task it is about to re-enqueue; workers exit through the context
	// instead of a closed channel.
	if runCtx.Err() == nil {
		close(collectionQueue)
	}

	waitWithDeadline(&collectionWG, p.config.QueuePollInterval*8)
	close(progressDone)

	p.stats.markFinished(time.Now())

	final := p.stats.snapshot()
	p.notifyStats(final)

	if runCtx.Err() != nil {
		p.state.Store(int32(StateStopped))
		p.logger.Info().
			Int64("discovered", final.Discovered).
			Int64("collected", final.Collected).
			Int64("failed", final.Failed).
			Int64("skipped", final.Skipped).
			Msg("Pipeline stopped before draining")

		return final, nil
	}

	p.state.Store(int32(StateDone))
	p.logger.Info().
		Int64("discovered", final.Discovered).
		Int64("collected", final.Collected).
		Int64("failed", final.Failed).
		Int64("skipped", final.Skipped).
		Int64("timeout_errors", final.TimeoutErrors).
		Float64("success_rate", final.SuccessRate()).
		Msg("Pipeline complete")

	return final, nil
}

// awaitCollectionDrain blocks until every enqueued collection task reached a
// terminal state, the run context ends, or stop is requested.
func (p *Pipeline) awaitCollectionDrain(ctx context.Context) {
	ticker := time.NewTicker(p.config.QueuePollInterval)
	defer ticker.Stop()

	for {
		if p.pendingTasks.Load() == 0 {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// waitWithDeadline joins a worker pool but never hangs the orchestrator on a
// misbehaving worker.
func waitWithDeadline(wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}

func (p *Pipeline) progressLoop(ctx context.Context, done <-chan struct{}) {
	interval := p.config.QueuePollInterval * 4
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.notifyStats(p.stats.snapshot())
		}
	}
}

func (p *Pipeline) notifyStats(stats models.PipelineStats) {
	for _, sub := range p.subscribers {
		sub.OnStats(stats)
	}
}

func (p *Pipeline) notifyDevice(record *models.DeviceRecord) {
	for _, sub := range p.subscribers {
		sub.OnDevice(record)
	}
}
