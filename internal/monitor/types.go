package monitor

import (
	"time"

	"codeberg.org/mutker/resmon/internal/metrics"
)

// Sample is one per-tick measurement attributed to an active task.
// Ephemeral: samples exist only inside an active task's buffer and are
// discarded once the task is reduced to a TaskSummary.
type Sample struct {
	Timestamp         time.Time
	CPUPercent        float64
	AccelUtilization  int
	AccelMemoryUsedMB int64
}

// TaskSummary is the reduction of a completed task's sample series.
// Immutable once produced; ownership transfers to the tracker's
// bounded history.
type TaskSummary struct {
	TaskID              string    `json:"task_id"`
	TaskType            string    `json:"task_type"`
	TaskTitle           string    `json:"task_title"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	DurationMS          float64   `json:"duration_ms"`
	AvgCPUPercent       float64   `json:"avg_cpu_percent"`
	MaxCPUPercent       float64   `json:"max_cpu_percent"`
	AvgAccelUtilization float64   `json:"avg_accel_utilization"`
	MaxAccelUtilization int       `json:"max_accel_utilization"`
	PeakVRAMUsedMB      int64     `json:"peak_vram_used_mb"`
	VRAMDeltaMB         int64     `json:"vram_delta_mb"`
	SampleCount         int       `json:"sample_count"`
}

// CombinedSnapshot is the unit delivered to subscribers: the latest
// system and accelerator readings plus recent task history. It is a
// value type, copied on every read.
type CombinedSnapshot struct {
	Timestamp   time.Time                   `json:"timestamp"`
	System      metrics.SystemSnapshot      `json:"system"`
	Accelerator metrics.AcceleratorSnapshot `json:"accelerator"`
	RecentTasks []TaskSummary               `json:"recent_tasks"`
}

// clone returns a deep copy so readers never share the RecentTasks
// backing array with the publisher.
func (s CombinedSnapshot) clone() CombinedSnapshot {
	out := s
	if s.RecentTasks != nil {
		out.RecentTasks = make([]TaskSummary, len(s.RecentTasks))
		copy(out.RecentTasks, s.RecentTasks)
	}

	return out
}
