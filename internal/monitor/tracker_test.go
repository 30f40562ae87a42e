package monitor_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/resmon/internal/errors"
	"codeberg.org/mutker/resmon/internal/metrics"
	"codeberg.org/mutker/resmon/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func systemAt(cpuPercent float64) metrics.SystemSnapshot {
	return metrics.SystemSnapshot{CPUPercent: cpuPercent, Available: true}
}

func accelAt(utilization int, vramUsedMB int64) metrics.AcceleratorSnapshot {
	return metrics.AcceleratorSnapshot{
		UtilizationPercent: utilization,
		VRAMUsedMB:         vramUsedMB,
		Available:          true,
	}
}

func TestStartTaskRejectsEmptyID(t *testing.T) {
	tracker := monitor.NewTracker(10)

	err := tracker.StartTask("", "LoaderNode", "Load Checkpoint")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, monitor.ErrEmptyTaskID))
}

func TestStartStopNoSamples(t *testing.T) {
	tracker := monitor.NewTracker(10)

	require.NoError(t, tracker.StartTask("n1", "LoaderNode", "Load Checkpoint"))
	summary, ok := tracker.StopTask("n1")
	require.True(t, ok)

	assert.Equal(t, "n1", summary.TaskID)
	assert.Equal(t, "LoaderNode", summary.TaskType)
	assert.Equal(t, "Load Checkpoint", summary.TaskTitle)
	assert.Equal(t, 0, summary.SampleCount)
	assert.Zero(t, summary.AvgCPUPercent)
	assert.Zero(t, summary.MaxCPUPercent)
	assert.Zero(t, summary.PeakVRAMUsedMB)
}

func TestDoubleStopIsIdempotent(t *testing.T) {
	tracker := monitor.NewTracker(10)

	require.NoError(t, tracker.StartTask("n1", "", ""))

	_, ok := tracker.StopTask("n1")
	assert.True(t, ok)

	_, ok = tracker.StopTask("n1")
	assert.False(t, ok, "second stop must return nothing")
}

func TestStopUnknownTask(t *testing.T) {
	tracker := monitor.NewTracker(10)

	_, ok := tracker.StopTask("never-started")
	assert.False(t, ok)
}

func TestSamplingAttribution(t *testing.T) {
	tracker := monitor.NewTracker(10)

	// Samples with nothing active are dropped, not an error
	tracker.SampleActiveTask(systemAt(99), accelAt(99, 99))

	require.NoError(t, tracker.StartTask("n1", "LoaderNode", "Load Checkpoint"))
	for _, cpuPercent := range []float64{10, 20, 30} {
		tracker.SampleActiveTask(systemAt(cpuPercent), accelAt(50, 1000))
	}

	summary, ok := tracker.StopTask("n1")
	require.True(t, ok)

	assert.Equal(t, 3, summary.SampleCount)
	assert.InDelta(t, 20.0, summary.AvgCPUPercent, 1e-9)
	assert.InDelta(t, 30.0, summary.MaxCPUPercent, 1e-9)
}

func TestRestartOverwritesActiveTask(t *testing.T) {
	tracker := monitor.NewTracker(10)

	require.NoError(t, tracker.StartTask("n1", "LoaderNode", "first"))
	tracker.SampleActiveTask(systemAt(10), accelAt(10, 100))

	// Last writer wins: the restarted record starts with a fresh buffer
	require.NoError(t, tracker.StartTask("n1", "LoaderNode", "second"))
	tracker.SampleActiveTask(systemAt(20), accelAt(20, 200))

	summary, ok := tracker.StopTask("n1")
	require.True(t, ok)
	assert.Equal(t, "second", summary.TaskTitle)
	assert.Equal(t, 1, summary.SampleCount)
	assert.InDelta(t, 20.0, summary.AvgCPUPercent, 1e-9)
}

func TestInnermostAttribution(t *testing.T) {
	tracker := monitor.NewTracker(10)

	require.NoError(t, tracker.StartTask("outer", "", ""))
	tracker.SampleActiveTask(systemAt(10), accelAt(0, 0))

	require.NoError(t, tracker.StartTask("inner", "", ""))
	tracker.SampleActiveTask(systemAt(20), accelAt(0, 0))
	tracker.SampleActiveTask(systemAt(40), accelAt(0, 0))

	assert.Equal(t, "inner", tracker.CurrentTaskID())
	assert.Equal(t, 2, tracker.ActiveCount())

	inner, ok := tracker.StopTask("inner")
	require.True(t, ok)
	assert.Equal(t, 2, inner.SampleCount)

	// Attribution does not fall back to the outer task
	assert.Equal(t, "", tracker.CurrentTaskID())
	tracker.SampleActiveTask(systemAt(80), accelAt(0, 0))

	outer, ok := tracker.StopTask("outer")
	require.True(t, ok)
	assert.Equal(t, 1, outer.SampleCount)
}

func TestSequentialTasksProduceOrderedHistory(t *testing.T) {
	tracker := monitor.NewTracker(10)

	require.NoError(t, tracker.StartTask("n1", "LoaderNode", ""))
	_, ok := tracker.StopTask("n1")
	require.True(t, ok)

	require.NoError(t, tracker.StartTask("n2", "SamplerNode", ""))
	_, ok = tracker.StopTask("n2")
	require.True(t, ok)

	recent := tracker.RecentSummaries(10)
	require.Len(t, recent, 2)
	assert.Equal(t, "n1", recent[0].TaskID)
	assert.Equal(t, "n2", recent[1].TaskID)
}

func TestHistoryEviction(t *testing.T) {
	const keepCount = 5
	tracker := monitor.NewTracker(keepCount)

	for i := 0; i < keepCount+3; i++ {
		id := fmt.Sprintf("n%d", i)
		require.NoError(t, tracker.StartTask(id, "", ""))
		_, ok := tracker.StopTask(id)
		require.True(t, ok)
	}

	recent := tracker.RecentSummaries(keepCount + 3)
	require.Len(t, recent, keepCount, "history must stay bounded")
	assert.Equal(t, "n3", recent[0].TaskID, "oldest summaries evicted first")
	assert.Equal(t, "n7", recent[len(recent)-1].TaskID)
}

func TestRecentSummariesLimit(t *testing.T) {
	tracker := monitor.NewTracker(50)

	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("n%d", i)
		require.NoError(t, tracker.StartTask(id, "", ""))
		tracker.StopTask(id)
	}

	recent := tracker.RecentSummaries(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "n2", recent[0].TaskID)
	assert.Equal(t, "n3", recent[1].TaskID)

	assert.Nil(t, tracker.RecentSummaries(0))
}
