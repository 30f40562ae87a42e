package monitor_test

import (
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/resmon/internal/errors"
	"codeberg.org/mutker/resmon/internal/metrics"
	"codeberg.org/mutker/resmon/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource returns fixed snapshots and counts queries.
type fakeSource struct {
	system  metrics.SystemSnapshot
	accel   metrics.AcceleratorSnapshot
	queries atomic.Int64
	panics  atomic.Bool
}

func (f *fakeSource) QuerySystem() metrics.SystemSnapshot {
	f.queries.Add(1)
	if f.panics.Load() {
		panic("source failure")
	}
	return f.system
}

func (f *fakeSource) QueryAccelerator(int) metrics.AcceleratorSnapshot {
	return f.accel
}

func testConfig() monitor.Config {
	cfg := monitor.DefaultConfig()
	cfg.Interval = monitor.MinInterval
	return cfg
}

func TestNewValidatesInterval(t *testing.T) {
	valid := []time.Duration{100 * time.Millisecond, time.Second, 60 * time.Second}
	for _, interval := range valid {
		cfg := monitor.DefaultConfig()
		cfg.Interval = interval
		_, err := monitor.New(cfg, metrics.Unavailable())
		assert.NoError(t, err, "interval %v should be accepted", interval)
	}

	invalid := []time.Duration{0, 99 * time.Millisecond, 61 * time.Second, -time.Second}
	for _, interval := range invalid {
		cfg := monitor.DefaultConfig()
		cfg.Interval = interval
		_, err := monitor.New(cfg, metrics.Unavailable())
		require.Error(t, err, "interval %v should be rejected", interval)
		assert.True(t, errors.HasCode(err, monitor.ErrInvalidConfig))
	}
}

func TestNewValidatesKeepCount(t *testing.T) {
	cfg := monitor.DefaultConfig()
	cfg.KeepCount = 0

	_, err := monitor.New(cfg, metrics.Unavailable())
	require.Error(t, err)
}

func TestStartStopLifecycle(t *testing.T) {
	src := &fakeSource{
		system: metrics.SystemSnapshot{CPUPercent: 12.5, Available: true},
		accel:  metrics.AcceleratorSnapshot{UtilizationPercent: 55, Available: true},
	}

	mon, err := monitor.New(testConfig(), src)
	require.NoError(t, err)

	// Stop before start is safe
	require.NoError(t, mon.Stop())

	mon.Start()
	mon.Start() // idempotent

	require.Eventually(t, func() bool {
		_, ok := mon.LatestSnapshot()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	snapshot, ok := mon.LatestSnapshot()
	require.True(t, ok)
	assert.InDelta(t, 12.5, snapshot.System.CPUPercent, 1e-9)
	assert.Equal(t, 55, snapshot.Accelerator.UtilizationPercent)

	require.NoError(t, mon.Stop())
	require.NoError(t, mon.Stop()) // stop when not running is safe

	queriesAtStop := src.queries.Load()
	time.Sleep(5 * monitor.MinInterval)
	assert.Equal(t, queriesAtStop, src.queries.Load(), "loop must not tick after Stop")
}

func TestRestartAfterStop(t *testing.T) {
	src := &fakeSource{system: metrics.SystemSnapshot{Available: true}}

	mon, err := monitor.New(testConfig(), src)
	require.NoError(t, err)

	// Task state persists across restart: it lives in the tracker
	require.NoError(t, mon.Tracker().StartTask("n1", "", ""))
	_, ok := mon.Tracker().StopTask("n1")
	require.True(t, ok)

	mon.Start()
	require.NoError(t, mon.Stop())
	mon.Start()
	defer func() { require.NoError(t, mon.Stop()) }()

	require.Eventually(t, func() bool {
		snapshot, ok := mon.LatestSnapshot()
		return ok && len(snapshot.RecentTasks) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTickEventsReachSubscribers(t *testing.T) {
	src := &fakeSource{system: metrics.SystemSnapshot{CPUPercent: 40, Available: true}}

	mon, err := monitor.New(testConfig(), src)
	require.NoError(t, err)

	sub := mon.Publisher().Subscribe()
	defer sub.Close()

	mon.Start()
	defer func() { require.NoError(t, mon.Stop()) }()

	select {
	case event := <-sub.Events():
		require.Equal(t, monitor.EventSnapshot, event.Type)
		snapshot, ok := event.Payload.(monitor.CombinedSnapshot)
		require.True(t, ok)
		assert.InDelta(t, 40.0, snapshot.System.CPUPercent, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot event received")
	}
}

func TestFailedTickDoesNotStopLoop(t *testing.T) {
	src := &fakeSource{system: metrics.SystemSnapshot{Available: true}}
	src.panics.Store(true)

	mon, err := monitor.New(testConfig(), src)
	require.NoError(t, err)

	mon.Start()
	defer func() { require.NoError(t, mon.Stop()) }()

	// Let a few ticks fail, then recover the source
	require.Eventually(t, func() bool {
		return src.queries.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond)
	src.panics.Store(false)

	require.Eventually(t, func() bool {
		_, ok := mon.LatestSnapshot()
		return ok
	}, 2*time.Second, 10*time.Millisecond, "loop must keep publishing after failed ticks")
}

func TestNoAcceleratorScenario(t *testing.T) {
	mon, err := monitor.New(testConfig(), metrics.Unavailable())
	require.NoError(t, err)

	mon.Start()
	defer func() { require.NoError(t, mon.Stop()) }()

	require.Eventually(t, func() bool {
		_, ok := mon.LatestSnapshot()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	snapshot, ok := mon.LatestSnapshot()
	require.True(t, ok)
	assert.False(t, snapshot.Accelerator.Available)
	assert.Zero(t, snapshot.Accelerator.UtilizationPercent)
	assert.False(t, snapshot.System.Available)
}

func TestSamplesAttributedDuringTicks(t *testing.T) {
	src := &fakeSource{
		system: metrics.SystemSnapshot{CPUPercent: 25, Available: true},
		accel:  metrics.AcceleratorSnapshot{UtilizationPercent: 75, VRAMUsedMB: 3000, Available: true},
	}

	mon, err := monitor.New(testConfig(), src)
	require.NoError(t, err)

	hooks := mon.Hooks()
	require.NoError(t, hooks.NotifyTaskStart("n1", "KSampler", "Sampling"))

	mon.Start()
	defer func() { require.NoError(t, mon.Stop()) }()

	require.Eventually(t, func() bool {
		return src.queries.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond)

	summary, ok := hooks.NotifyTaskEnd("n1")
	require.True(t, ok)

	assert.GreaterOrEqual(t, summary.SampleCount, 1)
	assert.InDelta(t, 25.0, summary.AvgCPUPercent, 1e-9)
	assert.Equal(t, 75, summary.MaxAccelUtilization)
	assert.Equal(t, int64(3000), summary.PeakVRAMUsedMB)
}
