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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetradar/assetradar/pkg/classify"
	"github.com/assetradar/assetradar/pkg/logger"
	"github.com/assetradar/assetradar/pkg/models"
	"github.com/assetradar/assetradar/pkg/protocols"
	"github.com/assetradar/assetradar/pkg/sink"
)

// fakeProber answers liveness from a fixed map instead of the network.
type fakeProber struct {
	alive map[string]bool
	ports map[string][]int
	delay time.Duration
}

func (f *fakeProber) IsAlive(_ context.Context, addr string) bool {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	return f.alive[addr]
}

func (f *fakeProber) OpenPorts(_ context.Context, addr string, _ []int) []int {
	return f.ports[addr]
}

// fakeClient records every attempt and answers from canned results.
type fakeClient struct {
	family  models.ProtocolFamily
	record  *models.DeviceRecord
	failure *models.Failure
	sleep   time.Duration

	mu       sync.Mutex
	attempts []string
}

func (f *fakeClient) Family() models.ProtocolFamily { return f.family }

func (f *fakeClient) Collect(ctx context.Context, addr string, _ models.Credential) (*models.DeviceRecord, *models.Failure) {
	f.mu.Lock()
	f.attempts = append(f.attempts, addr)
	f.mu.Unlock()

	if f.sleep > 0 {
		select {
		case <-time.After(f.sleep):
		case <-ctx.Done():
			return nil, &models.Failure{Kind: models.FailureTimeout, Message: ctx.Err().Error()}
		}
	}

	if f.record != nil {
		dup := *f.record
		dup.Address = addr

		return &dup, nil
	}

	return nil, f.failure
}

func (f *fakeClient) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.attempts)
}

func testConfig(targets ...string) models.Config {
	return models.Config{
		Targets:           targets,
		DiscoveryWorkers:  4,
		CollectionWorkers: 2,
		ProbeTimeout:      100 * time.Millisecond,
		TaskDeadline:      2 * time.Second,
		GlobalDeadline:    10 * time.Second,
		QueuePollInterval: 20 * time.Millisecond,
		MaxRetries:        1,
	}
}

func newTestPipeline(t *testing.T, cfg models.Config, prober livenessProber, clients protocols.Set) (*Pipeline, *sink.InMemoryStore) {
	t.Helper()

	log := logger.NewTestLogger()
	store := sink.NewInMemoryStore()
	resultSink := sink.New(store, log)
	t.Cleanup(func() { _ = resultSink.Close() })

	p, err := New(cfg, classify.New(nil, log), clients, resultSink, log)
	require.NoError(t, err)

	p.prober = prober

	return p, store
}

func TestRunSingleLiveHostCollectsOverSSH(t *testing.T) {
	prober := &fakeProber{
		alive: map[string]bool{"127.0.0.1": true},
		ports: map[string][]int{"127.0.0.1": {22}},
	}

	ssh := &fakeClient{
		family: models.ProtocolUnixShell,
		record: &models.DeviceRecord{
			Hostname:     "localhost",
			ProtocolUsed: string(models.ProtocolUnixShell),
		},
	}

	p, store := newTestPipeline(t, testConfig("127.0.0.1"), prober, protocols.Set{
		models.ProtocolUnixShell: ssh,
	})

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Discovered)
	assert.Equal(t, int64(1), stats.Collected)
	assert.Equal(t, int64(0), stats.Failed)
	assert.Equal(t, int64(0), stats.Skipped)
	assert.Equal(t, 1, ssh.attemptCount())
	assert.Equal(t, StateDone, p.State())

	records := store.List()
	require.Len(t, records, 1)
	assert.Equal(t, string(models.ProtocolUnixShell), records[0].ProtocolUsed)
}

func TestRunDeadHostsAreSkipped(t *testing.T) {
	prober := &fakeProber{alive: map[string]bool{}}

	p, store := newTestPipeline(t, testConfig("10.0.0.5-7"), prober, protocols.Set{})

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Discovered)
	assert.Equal(t, int64(3), stats.Skipped)
	assert.Equal(t, int64(0), stats.Collected)
	assert.Equal(t, int64(0), stats.Failed)
	assert.Empty(t, store.List())
}

func TestRunFallbackTerminatesWithoutRepeatingProtocols(t *testing.T) {
	prober := &fakeProber{
		alive: map[string]bool{"10.0.0.1": true},
		ports: map[string][]int{"10.0.0.1": {445}},
	}

	refused := &models.Failure{Kind: models.FailureUnreachable, Message: "connection refused"}

	winrm := &fakeClient{family: models.ProtocolWindowsManagement, failure: refused}
	ssh := &fakeClient{family: models.ProtocolUnixShell, failure: refused}
	snmp := &fakeClient{family: models.ProtocolNetworkManagement, failure: refused}

	cfg := testConfig("10.0.0.1")
	cfg.MaxRetries = 1

	p, store := newTestPipeline(t, cfg, prober, protocols.Set{
		models.ProtocolWindowsManagement: winrm,
		models.ProtocolUnixShell:         ssh,
		models.ProtocolNetworkManagement: snmp,
	})

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(0), stats.Collected)
	assert.Empty(t, store.List())

	total := winrm.attemptCount() + ssh.attemptCount() + snmp.attemptCount()
	assert.Equal(t, 2, total, "retry budget allows max_retries+1 attempts")
	assert.LessOrEqual(t, winrm.attemptCount(), 1)
	assert.LessOrEqual(t, ssh.attemptCount(), 1)
	assert.LessOrEqual(t, snmp.attemptCount(), 1)
}

func TestRunFallbackRecoversOnSecondProtocol(t *testing.T) {
	prober := &fakeProber{
		alive: map[string]bool{"10.0.0.1": true},
		ports: map[string][]int{"10.0.0.1": {445}},
	}

	winrm := &fakeClient{
		family:  models.ProtocolWindowsManagement,
		failure: &models.Failure{Kind: models.FailureAuth, Message: "access denied"},
	}
	ssh := &fakeClient{
		family: models.ProtocolUnixShell,
		record: &models.DeviceRecord{ProtocolUsed: string(models.ProtocolUnixShell)},
	}

	p, store := newTestPipeline(t, testConfig("10.0.0.1"), prober, protocols.Set{
		models.ProtocolWindowsManagement: winrm,
		models.ProtocolUnixShell:         ssh,
	})

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Collected)
	assert.Equal(t, 1, winrm.attemptCount())
	assert.Equal(t, 1, ssh.attemptCount())
	require.Len(t, store.List(), 1)
}

func TestRunTaskDeadlineEmitsRecoveryRecord(t *testing.T) {
	prober := &fakeProber{
		alive: map[string]bool{"10.0.0.1": true},
		ports: map[string][]int{"10.0.0.1": {22}},
	}

	slow := &fakeClient{
		family: models.ProtocolUnixShell,
		sleep:  time.Minute,
	}

	cfg := testConfig("10.0.0.1")
	cfg.TaskDeadline = 100 * time.Millisecond

	p, store := newTestPipeline(t, cfg, prober, protocols.Set{
		models.ProtocolUnixShell: slow,
	})

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Collected)
	assert.Equal(t, int64(0), stats.Failed)
	assert.Positive(t, stats.TimeoutErrors)

	records := store.List()
	require.Len(t, records, 1)
	assert.Equal(t, models.ProtocolTimeoutRecovery, records[0].ProtocolUsed)
}

// A client that violates its contract by returning neither a record nor a
// failure must not wedge the task; the run terminates with the host failed
// instead of draining until the global deadline.
func TestRunMisbehavingClientStillTerminates(t *testing.T) {
	prober := &fakeProber{
		alive: map[string]bool{"10.0.0.1": true},
		ports: map[string][]int{"10.0.0.1": {22}},
	}

	broken := &fakeClient{family: models.ProtocolUnixShell}

	p, store := newTestPipeline(t, testConfig("10.0.0.1"), prober, protocols.Set{
		models.ProtocolUnixShell: broken,
	})

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, p.State())
	assert.Equal(t, int64(1), stats.Discovered)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(0), stats.Collected)
	assert.Equal(t, 1, broken.attemptCount())
	assert.Empty(t, store.List())
}

func TestRunStatsInvariant(t *testing.T) {
	prober := &fakeProber{
		alive: map[string]bool{
			"10.0.0.1": true,
			"10.0.0.2": true,
		},
		ports: map[string][]int{
			"10.0.0.1": {22},
			"10.0.0.2": {22},
		},
	}

	ssh := &fakeClient{
		family: models.ProtocolUnixShell,
		record: &models.DeviceRecord{ProtocolUsed: string(models.ProtocolUnixShell)},
	}

	cfg := testConfig("10.0.0.1-3")
	cfg.MaxRetries = 1

	p, _ := newTestPipeline(t, cfg, prober, protocols.Set{
		models.ProtocolUnixShell: ssh,
	})

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Discovered)
	assert.Equal(t, stats.Discovered, stats.Collected+stats.Failed+stats.Skipped)
	assert.Equal(t, int64(2), stats.Collected)
	assert.Equal(t, int64(1), stats.Skipped)
}

func TestStopExitsPromptly(t *testing.T) {
	prober := &fakeProber{alive: map[string]bool{}, delay: 10 * time.Millisecond}

	cfg := testConfig("10.0.0.1-100")
	cfg.DiscoveryWorkers = 2
	cfg.QueuePollInterval = 50 * time.Millisecond

	p, _ := newTestPipeline(t, cfg, prober, protocols.Set{})

	done := make(chan models.PipelineStats, 1)

	go func() {
		stats, _ := p.Run(context.Background())
		done <- stats
	}()

	time.Sleep(60 * time.Millisecond)
	start := time.Now()
	p.Stop()

	select {
	case <-done:
		assert.Less(t, time.Since(start), 2*cfg.QueuePollInterval+200*time.Millisecond)
	case <-time.After(3 * time.Second):
		t.Fatal("pipeline did not stop in time")
	}

	assert.Equal(t, StateStopped, p.State())
}

func TestStopIsIdempotent(t *testing.T) {
	p, _ := newTestPipeline(t, testConfig("10.0.0.1"), &fakeProber{alive: map[string]bool{}}, protocols.Set{})

	p.Stop()
	p.Stop()
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	prober := &fakeProber{alive: map[string]bool{}, delay: 20 * time.Millisecond}

	p, _ := newTestPipeline(t, testConfig("10.0.0.1-20"), prober, protocols.Set{})

	go func() { _, _ = p.Run(context.Background()) }()

	time.Sleep(30 * time.Millisecond)

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestSubscriberReceivesDeviceEvents(t *testing.T) {
	prober := &fakeProber{
		alive: map[string]bool{"10.0.0.1": true},
		ports: map[string][]int{"10.0.0.1": {22}},
	}

	ssh := &fakeClient{
		family: models.ProtocolUnixShell,
		record: &models.DeviceRecord{ProtocolUsed: string(models.ProtocolUnixShell)},
	}

	p, _ := newTestPipeline(t, testConfig("10.0.0.1"), prober, protocols.Set{
		models.ProtocolUnixShell: ssh,
	})

	sub := &recordingSubscriber{}
	p.Subscribe(sub)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sub.deviceCount())
	assert.Positive(t, sub.statsCount())
}

type recordingSubscriber struct {
	mu      sync.Mutex
	stats   int
	devices int
}

func (r *recordingSubscriber) OnStats(models.PipelineStats) {
	r.mu.Lock()
	r.stats++
	r.mu.Unlock()
}

func (r *recordingSubscriber) OnDevice(*models.DeviceRecord) {
	r.mu.Lock()
	r.devices++
	r.mu.Unlock()
}

func (r *recordingSubscriber) statsCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stats
}

func (r *recordingSubscriber) deviceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.devices
}

func TestPriorityScore(t *testing.T) {
	tests := []struct {
		name  string
		ports []int
		want  float64
	}{
		{"no ports", nil, 0},
		{"rpc only", []int{135}, 0.4},
		{"ssh only", []int{22}, 0.3},
		{"smb only", []int{445}, 0.3},
		{"rpc and ssh", []int{22, 135}, 0.7},
		{"all signals capped", []int{22, 135, 445}, 1.0},
		{"unscored ports", []int{80, 443}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, priorityScore(tt.ports), 1e-9)
		})
	}
}
