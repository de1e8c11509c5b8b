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

// Package classify maps hosts to collection protocol families using OS
// fingerprints when available and port signatures otherwise.
package classify

import (
	"context"
	"strings"

	"github.com/assetradar/assetradar/pkg/logger"
	"github.com/assetradar/assetradar/pkg/models"
)

// ClassifierPorts is the signature port set probed during discovery so the
// collection phase can classify without re-probing.
var ClassifierPorts = []int{22, 80, 135, 161, 443, 445, 3389}

// FingerprintProbe is the optional external OS-fingerprint collaborator.
type FingerprintProbe interface {
	Fingerprint(ctx context.Context, addr string) (*models.Fingerprint, error)
}

// Classifier decides which protocol family applies to a host. Classification
// is deterministic given identical fingerprint and port input.
type Classifier struct {
	probe  FingerprintProbe
	logger logger.Logger
}

// New builds a Classifier. probe may be nil, in which case only port
// signatures are consulted.
func New(probe FingerprintProbe, log logger.Logger) *Classifier {
	return &Classifier{probe: probe, logger: log}
}

// Classify resolves the protocol family for addr. openPorts is the signature
// port subset observed during discovery. The fingerprint probe is the primary
// signal; any probe error degrades silently to the port heuristics.
func (c *Classifier) Classify(ctx context.Context, addr string, openPorts []int) models.ProtocolFamily {
	if c.probe != nil {
		fp, err := c.probe.Fingerprint(ctx, addr)
		if err != nil {
			c.logger.Debug().Err(err).Str("addr", addr).Msg("Fingerprint probe failed, falling back to port signature")
		} else if family := FromFingerprint(fp, c.logger); family != models.ProtocolUnknown {
			return family
		}
	}

	return FromPorts(openPorts)
}

// FromFingerprint maps an OS fingerprint to a protocol family by substring
// rules. An unknown fingerprint returns ProtocolUnknown so callers fall back
// to port signatures.
func FromFingerprint(fp *models.Fingerprint, log logger.Logger) models.ProtocolFamily {
	if fp.Unknown() {
		return models.ProtocolUnknown
	}

	osName := strings.ToLower(fp.OSFamily)

	switch {
	case strings.Contains(osName, "windows"):
		// The server distinction matters for reporting only, never for
		// protocol choice.
		if log != nil && strings.Contains(osName, "server") {
			log.Debug().Str("os", fp.OSFamily).Msg("Windows server fingerprint")
		}

		return models.ProtocolWindowsManagement
	case strings.Contains(osName, "linux"), strings.Contains(osName, "unix"):
		return models.ProtocolUnixShell
	default:
		// Anything else that fingerprints at all is assumed to be managed
		// gear reachable over SNMP.
		return models.ProtocolNetworkManagement
	}
}

// FromPorts classifies by port signature alone.
func FromPorts(openPorts []int) models.ProtocolFamily {
	open := make(map[int]bool, len(openPorts))
	for _, p := range openPorts {
		open[p] = true
	}

	switch {
	case open[135] || open[445] || open[3389]:
		return models.ProtocolWindowsManagement
	case open[22]:
		return models.ProtocolUnixShell
	case open[161]:
		return models.ProtocolNetworkManagement
	default:
		return models.ProtocolUnknown
	}
}
