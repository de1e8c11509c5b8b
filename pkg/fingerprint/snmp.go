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

package fingerprint

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/assetradar/assetradar/pkg/models"
)

var ErrNoSysDescr = errors.New("fingerprint: no sysDescr from agent")

const (
	sysDescrOID        = "1.3.6.1.2.1.1.1.0"
	defaultSNMPTimeout = 2 * time.Second
	sysDescrConfidence = 60
)

// SysDescrProbe is a cheap fingerprint hint for hosts where nmap is not
// available: one SNMP v2c get of sysDescr, whose text usually names the OS.
type SysDescrProbe struct {
	community string
	timeout   time.Duration
}

func NewSysDescrProbe(community string, timeout time.Duration) *SysDescrProbe {
	if community == "" {
		community = "public"
	}

	if timeout == 0 {
		timeout = defaultSNMPTimeout
	}

	return &SysDescrProbe{community: community, timeout: timeout}
}

func (p *SysDescrProbe) Fingerprint(ctx context.Context, addr string) (*models.Fingerprint, error) {
	conn := &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    addr,
		Port:      161,
		Community: p.community,
		Version:   gosnmp.Version2c,
		Timeout:   p.timeout,
		Retries:   0,
	}

	if err := conn.Connect(); err != nil {
		return nil, err
	}

	defer func() { _ = conn.Conn.Close() }()

	result, err := conn.Get([]string{sysDescrOID})
	if err != nil {
		return nil, err
	}

	for _, v := range result.Variables {
		if v.Type != gosnmp.OctetString {
			continue
		}

		if b, ok := v.Value.([]byte); ok {
			descr := strings.TrimSpace(string(b))
			if descr == "" {
				continue
			}

			return &models.Fingerprint{
				OSFamily:   descr,
				Confidence: sysDescrConfidence,
			}, nil
		}
	}

	return nil, ErrNoSysDescr
}

// Chain tries each probe in order and returns the first fingerprint.
type Chain []interface {
	Fingerprint(ctx context.Context, addr string) (*models.Fingerprint, error)
}

func (c Chain) Fingerprint(ctx context.Context, addr string) (*models.Fingerprint, error) {
	var errs error

	for _, probe := range c {
		fp, err := probe.Fingerprint(ctx, addr)
		if err == nil && !fp.Unknown() {
			return fp, nil
		}

		errs = errors.Join(errs, err)
	}

	if errs == nil {
		errs = ErrNoOSMatch
	}

	return nil, errs
}
