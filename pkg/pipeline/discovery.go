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

	"github.com/assetradar/assetradar/pkg/classify"
	"github.com/assetradar/assetradar/pkg/models"
)

// discoveryWorker drains the discovery queue, probing each address for
// liveness and promoting live hosts into collection tasks. A worker panic is
// contained and the loop restarted so one bad address cannot shrink the pool.
func (p *Pipeline) discoveryWorker(
	ctx context.Context,
	id int,
	in <-chan models.DiscoveryTask,
	out chan<- *models.CollectionTask,
) {
	log := p.logger.WithFields(map[string]interface{}{
		"component": "discovery",
		"worker":    id,
	})

	for {
		recovered := func() (recovered bool) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("Discovery worker panicked, restarting")

					recovered = true
				}
			}()

			p.discoveryLoop(ctx, in, out)

			return false
		}()

		if !recovered {
			return
		}
	}
}

func (p *Pipeline) discoveryLoop(
	ctx context.Context,
	in <-chan models.DiscoveryTask,
	out chan<- *models.CollectionTask,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-in:
			if !ok {
				return
			}

			p.discoverAddress(ctx, task, out)
		}
	}
}

// discoverAddress probes one address. Every probed address counts as
// discovered; dead hosts additionally count as skipped and produce no
// collection task.
func (p *Pipeline) discoverAddress(
	ctx context.Context,
	task models.DiscoveryTask,
	out chan<- *models.CollectionTask,
) {
	p.stats.incDiscovered()

	if !p.prober.IsAlive(ctx, task.Address) {
		p.stats.incSkipped()
		p.logger.Debug().Str("address", task.Address).Msg("Host not responding, skipping")

		return
	}

	openPorts := p.prober.OpenPorts(ctx, task.Address, classify.ClassifierPorts)

	collect := &models.CollectionTask{
		Address:            task.Address,
		Priority:           priorityScore(openPorts),
		MaxRetries:         p.config.MaxRetries,
		AttemptedProtocols: make(map[models.ProtocolFamily]bool),
		EnqueuedAt:         time.Now(),
		OpenPorts:          openPorts,
	}

	p.pendingTasks.Add(1)

	select {
	case out <- collect:
	case <-ctx.Done():
		p.pendingTasks.Add(-1)
	}
}

// priorityScore ranks a host for collection by the management surfaces its
// open ports suggest. Windows RPC is the strongest signal; SSH and SMB add
// to it. Scores cap at 1.0.
func priorityScore(openPorts []int) float64 {
	var score float64

	for _, port := range openPorts {
		switch port {
		case 135:
			score += 0.4
		case 22:
			score += 0.3
		case 445:
			score += 0.3
		}
	}

	if score > 1.0 {
		score = 1.0
	}

	return score
}
