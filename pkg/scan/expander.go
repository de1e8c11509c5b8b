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
	"net"
	"strconv"
	"strings"

	"github.com/assetradar/assetradar/pkg/logger"
)

const (
	// maxRangeAddresses caps a dash-range expansion to bound memory and
	// scan time for a single spec.
	maxRangeAddresses = 100

	// maxCIDRAddresses caps total CIDR expansion per pipeline invocation.
	maxCIDRAddresses = 1000
)

// Expander turns target specs (single IP, dash-range on the last octet, CIDR)
// into concrete deduplicated address lists. Expansion is pure string work with
// no network I/O.
type Expander struct {
	logger logger.Logger
}

func NewExpander(log logger.Logger) *Expander {
	return &Expander{logger: log}
}

// Expand flattens all specs into a deduplicated address list, preserving
// first-seen order across specs. The CIDR cap applies to the whole invocation,
// so a huge block cannot starve the pipeline.
func (e *Expander) Expand(specs []string) []string {
	seen := make(map[string]struct{})
	addrs := make([]string, 0, len(specs))
	cidrBudget := maxCIDRAddresses

	for _, spec := range specs {
		expanded := e.expandOne(spec, &cidrBudget)

		for _, addr := range expanded {
			if _, dup := seen[addr]; dup {
				continue
			}

			seen[addr] = struct{}{}
			addrs = append(addrs, addr)
		}
	}

	return addrs
}

func (e *Expander) expandOne(spec string, cidrBudget *int) []string {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}

	switch {
	case strings.Contains(spec, "/"):
		return e.expandCIDR(spec, cidrBudget)
	case strings.Contains(spec, "-"):
		return e.expandRange(spec)
	default:
		return []string{spec}
	}
}

// expandRange expands "a.b.c.start-end" on the last octet. A range whose high
// end does not parse, or whose endpoints are not in the same /24, is passed
// through unchanged as a literal target. That passthrough mirrors the legacy
// scanner and is almost certainly a bug in the original; callers should
// validate ranges before submission.
func (e *Expander) expandRange(spec string) []string {
	dash := strings.LastIndex(spec, "-")
	low, high := spec[:dash], spec[dash+1:]

	lowIP := net.ParseIP(low)
	if lowIP == nil || lowIP.To4() == nil {
		e.logger.Warn().Str("spec", spec).Msg("Malformed range start, passing spec through as a literal target")
		return []string{spec}
	}

	octets := strings.Split(low, ".")
	start, err := strconv.Atoi(octets[3])
	if err != nil {
		return []string{spec}
	}

	end, sameSubnet := parseRangeEnd(high, octets)
	if !sameSubnet {
		e.logger.Warn().Str("spec", spec).Msg("Malformed dash-range, passing spec through as a literal target")
		return []string{spec}
	}

	if end < start {
		e.logger.Warn().Str("spec", spec).Msg("Range end below range start, passing spec through as a literal target")
		return []string{spec}
	}

	if end-start+1 > maxRangeAddresses {
		end = start + maxRangeAddresses - 1
		e.logger.Warn().
			Str("spec", spec).
			Int("cap", maxRangeAddresses).
			Msg("Dash-range truncated to address cap")
	}

	if end > 255 {
		end = 255
	}

	prefix := strings.Join(octets[:3], ".")
	addrs := make([]string, 0, end-start+1)

	for i := start; i <= end; i++ {
		addrs = append(addrs, prefix+"."+strconv.Itoa(i))
	}

	return addrs
}

// parseRangeEnd accepts either a bare final octet ("50") or a full address
// ("10.0.0.50") as the high end. Full addresses must share the /24 of the low
// end.
func parseRangeEnd(high string, lowOctets []string) (int, bool) {
	if !strings.Contains(high, ".") {
		// A bare octet above 255 is accepted here; the range cap and the
		// octet clamp below bound what actually gets scanned.
		end, err := strconv.Atoi(high)
		if err != nil || end < 0 {
			return 0, false
		}

		return end, true
	}

	highIP := net.ParseIP(high)
	if highIP == nil || highIP.To4() == nil {
		return 0, false
	}

	highOctets := strings.Split(high, ".")
	for i := 0; i < 3; i++ {
		if highOctets[i] != lowOctets[i] {
			return 0, false
		}
	}

	end, err := strconv.Atoi(highOctets[3])
	if err != nil {
		return 0, false
	}

	return end, true
}

// expandCIDR expands a CIDR block, charging addresses against the shared
// invocation budget. Truncation is a warning, not an error.
func (e *Expander) expandCIDR(spec string, budget *int) []string {
	ips, err := ExpandCIDR(spec)
	if err != nil {
		e.logger.Warn().Err(err).Str("spec", spec).Msg("Invalid CIDR spec, skipping")
		return nil
	}

	if len(ips) > *budget {
		e.logger.Warn().
			Str("spec", spec).
			Int("hosts", len(ips)).
			Int("budget", *budget).
			Msg("CIDR expansion truncated to invocation cap")

		ips = ips[:*budget]
	}

	*budget -= len(ips)

	return ips
}

// ExpandCIDR expands a CIDR notation into a slice of IP addresses, skipping
// network and broadcast addresses for IPv4 non-/32 networks.
func ExpandCIDR(cidr string) ([]string, error) {
	baseIP, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}

	var ips []string

	for currentIP := baseIP.Mask(ipnet.Mask); ipnet.Contains(currentIP); incIP(currentIP) {
		ones, _ := ipnet.Mask.Size()
		if currentIP.To4() != nil && ones != 32 {
			if currentIP.Equal(ipnet.IP) || isBroadcast(currentIP, ipnet) {
				continue
			}
		}

		ips = append(ips, currentIP.String())
	}

	return ips, nil
}

// incIP increments an IP address in place.
func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			break
		}
	}
}

// isBroadcast checks if an IP is the broadcast address of a network.
func isBroadcast(ip net.IP, ipnet *net.IPNet) bool {
	broadcast := make(net.IP, len(ip))
	for i := range ip {
		broadcast[i] = ipnet.IP[i] | ^ipnet.Mask[i]
	}

	return ip.Equal(broadcast)
}
