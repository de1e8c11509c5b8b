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

package scan

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/assetradar/assetradar/pkg/logger"
)

// LivenessPorts is the fixed short list of well-known ports probed to decide
// reachability: SSH, HTTP, MS-RPC, SMB.
var LivenessPorts = []int{22, 80, 135, 445}

const (
	defaultProbeTimeout = 300 * time.Millisecond
	portProbeFanout     = 8
)

// Prober answers liveness and open-port questions over plain TCP connects.
// A host with every probed port filtered is reported dead even if it answers
// ICMP; false negatives are the price of speed and of not needing raw-socket
// privileges.
type Prober struct {
	timeout time.Duration
	ports   []int
	logger  logger.Logger
}

func NewProber(timeout time.Duration, log logger.Logger) *Prober {
	if timeout == 0 {
		timeout = defaultProbeTimeout
	}

	return &Prober{
		timeout: timeout,
		ports:   LivenessPorts,
		logger:  log,
	}
}

// IsAlive reports whether addr accepts a TCP connection on any liveness port.
// Ports are tried in sequence and the first success wins, so the worst case is
// len(ports) x timeout. Never returns an error; unreachable is just false.
func (p *Prober) IsAlive(ctx context.Context, addr string) bool {
	for _, port := range p.ports {
		if ctx.Err() != nil {
			return false
		}

		if ok, _ := p.checkPort(ctx, addr, port); ok {
			return true
		}
	}

	return false
}

// OpenPorts probes the given ports in parallel and returns the open subset in
// ascending order. Used for priority scoring and protocol classification.
func (p *Prober) OpenPorts(ctx context.Context, addr string, ports []int) []int {
	var (
		mu   sync.Mutex
		open []int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(portProbeFanout)

	for _, port := range ports {
		port := port
		g.Go(func() error {
			if ok, _ := p.checkPort(gctx, addr, port); ok {
				mu.Lock()
				open = append(open, port)
				mu.Unlock()
			}

			return nil
		})
	}

	_ = g.Wait()

	sort.Ints(open)

	return open
}

func (p *Prober) checkPort(ctx context.Context, host string, port int) (bool, time.Duration) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()

	var dialer net.Dialer

	conn, err := dialer.DialContext(probeCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false, time.Since(start)
	}

	if err := conn.Close(); err != nil {
		p.logger.Debug().Err(err).Str("host", host).Int("port", port).Msg("Failed to close probe connection")
	}

	return true, time.Since(start)
}
