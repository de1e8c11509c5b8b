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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetradar/assetradar/pkg/logger"
)

func TestExpandSingleAddress(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())

	addrs := e.Expand([]string{"192.168.1.10"})
	assert.Equal(t, []string{"192.168.1.10"}, addrs)
}

func TestExpandDashRange(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())

	addrs := e.Expand([]string{"192.168.1.10-12"})
	assert.Equal(t, []string{"192.168.1.10", "192.168.1.11", "192.168.1.12"}, addrs)
}

func TestExpandDashRangeFullForm(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())

	addrs := e.Expand([]string{"10.0.0.1-10.0.0.3"})
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, addrs)
}

func TestExpandDashRangeCapped(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())

	addrs := e.Expand([]string{"10.0.0.1-500"})
	require.Len(t, addrs, maxRangeAddresses)
	assert.Equal(t, "10.0.0.1", addrs[0])
	assert.Equal(t, "10.0.0.100", addrs[len(addrs)-1])
}

func TestExpandDashRangeSingleElement(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())

	addrs := e.Expand([]string{"10.0.0.5-5"})
	assert.Equal(t, []string{"10.0.0.5"}, addrs)
}

func TestExpandMalformedRangePassthrough(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())

	tests := []string{
		"10.0.0.5-abc",
		"10.0.0.5-10.0.1.9",
		"10.0.0.9-10.0.0.5",
		"notanip-7",
	}

	for _, spec := range tests {
		addrs := e.Expand([]string{spec})
		assert.Equal(t, []string{spec}, addrs, "spec %q should pass through as a literal", spec)
	}
}

func TestExpandCIDRSmallBlock(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())

	addrs := e.Expand([]string{"192.168.1.0/29"})
	assert.Equal(t, []string{
		"192.168.1.1", "192.168.1.2", "192.168.1.3",
		"192.168.1.4", "192.168.1.5", "192.168.1.6",
	}, addrs)
}

func TestExpandCIDRHostRoute(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())

	addrs := e.Expand([]string{"10.1.2.3/32"})
	assert.Equal(t, []string{"10.1.2.3"}, addrs)
}

func TestExpandCIDRCapped(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())

	addrs := e.Expand([]string{"10.0.0.0/16"})
	assert.Len(t, addrs, maxCIDRAddresses)
}

func TestExpandCIDRBudgetSharedAcrossSpecs(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())

	addrs := e.Expand([]string{"10.0.0.0/22", "10.1.0.0/22"})
	assert.Len(t, addrs, maxCIDRAddresses)
}

func TestExpandInvalidCIDRSkipped(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())

	addrs := e.Expand([]string{"300.0.0.0/8", "192.168.1.1"})
	assert.Equal(t, []string{"192.168.1.1"}, addrs)
}

func TestExpandDeterministic(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())
	specs := []string{"192.168.1.0/29", "10.0.0.1-5", "172.16.0.1"}

	first := e.Expand(specs)
	second := e.Expand(specs)

	assert.Equal(t, first, second)
}

func TestExpandDedupIdempotent(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())

	once := e.Expand([]string{"10.0.0.1-3"})
	twice := e.Expand([]string{"10.0.0.1-3", "10.0.0.1-3"})

	assert.Equal(t, once, twice)
}

func TestExpandOverlappingSpecsDeduped(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())

	addrs := e.Expand([]string{"10.0.0.1-4", "10.0.0.3-6"})
	assert.Equal(t, []string{
		"10.0.0.1", "10.0.0.2", "10.0.0.3",
		"10.0.0.4", "10.0.0.5", "10.0.0.6",
	}, addrs)
}

func TestExpandSkipsEmptySpecs(t *testing.T) {
	e := NewExpander(logger.NewTestLogger())

	addrs := e.Expand([]string{"", "  ", "10.0.0.1"})
	assert.Equal(t, []string{"10.0.0.1"}, addrs)
}

func TestExpandCIDRSkipsNetworkAndBroadcast(t *testing.T) {
	ips, err := ExpandCIDR("10.9.8.0/30")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.9.8.1", "10.9.8.2"}, ips)
}
