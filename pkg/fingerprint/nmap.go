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

// Package fingerprint implements the OS-fingerprint probe collaborator. The
// pipeline core never shells out to nmap itself; everything external lives
// behind this package's interface.
package fingerprint

import (
	"context"
	"errors"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"

	"github.com/assetradar/assetradar/pkg/logger"
	"github.com/assetradar/assetradar/pkg/models"
)

var (
	ErrNoHosts    = errors.New("fingerprint: no hosts in scan result")
	ErrNoOSMatch  = errors.New("fingerprint: no OS match for host")
	ErrNmapFailed = errors.New("fingerprint: nmap scan failed")
)

const defaultNmapTimeout = 30 * time.Second

// NmapProbe fingerprints hosts with nmap OS detection. Requires the nmap
// binary on PATH and raw-socket privileges; callers should treat construction
// or probe errors as "no fingerprint available" rather than fatal.
type NmapProbe struct {
	timeout time.Duration
	logger  logger.Logger
}

func NewNmapProbe(timeout time.Duration, log logger.Logger) *NmapProbe {
	if timeout == 0 {
		timeout = defaultNmapTimeout
	}

	return &NmapProbe{timeout: timeout, logger: log}
}

// Fingerprint runs nmap OS detection against a single address and returns the
// best match.
func (p *NmapProbe) Fingerprint(ctx context.Context, addr string) (*models.Fingerprint, error) {
	scanCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	scanner, err := nmap.NewScanner(
		scanCtx,
		nmap.WithTargets(addr),
		nmap.WithOSDetection(),
		nmap.WithTimingTemplate(nmap.TimingAggressive),
	)
	if err != nil {
		return nil, errors.Join(ErrNmapFailed, err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, errors.Join(ErrNmapFailed, err)
	}

	if warnings != nil && len(*warnings) > 0 {
		p.logger.Debug().Strs("warnings", *warnings).Str("addr", addr).Msg("Nmap emitted warnings")
	}

	if len(result.Hosts) == 0 {
		return nil, ErrNoHosts
	}

	host := result.Hosts[0]
	if len(host.OS.Matches) == 0 {
		return nil, ErrNoOSMatch
	}

	best := host.OS.Matches[0]
	for _, m := range host.OS.Matches[1:] {
		if m.Accuracy > best.Accuracy {
			best = m
		}
	}

	fp := &models.Fingerprint{
		OSFamily:   best.Name,
		Confidence: best.Accuracy,
	}

	if len(best.Classes) > 0 {
		fp.Vendor = best.Classes[0].Vendor
	}

	return fp, nil
}
