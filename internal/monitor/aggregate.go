package monitor

import "time"

const msPerSecond = 1000

// summarize reduces a task's sample series into aggregate statistics.
// Total function: zero samples produce zero-valued aggregates, never a
// division by zero.
func summarize(id, taskType, title string, start, end time.Time, samples []Sample) TaskSummary {
	summary := TaskSummary{
		TaskID:      id,
		TaskType:    taskType,
		TaskTitle:   title,
		StartTime:   start,
		EndTime:     end,
		DurationMS:  end.Sub(start).Seconds() * msPerSecond,
		SampleCount: len(samples),
	}

	if len(samples) == 0 {
		return summary
	}

	var cpuSum, accelSum float64
	for _, sample := range samples {
		cpuSum += sample.CPUPercent
		accelSum += float64(sample.AccelUtilization)

		if sample.CPUPercent > summary.MaxCPUPercent {
			summary.MaxCPUPercent = sample.CPUPercent
		}
		if sample.AccelUtilization > summary.MaxAccelUtilization {
			summary.MaxAccelUtilization = sample.AccelUtilization
		}
		if sample.AccelMemoryUsedMB > summary.PeakVRAMUsedMB {
			summary.PeakVRAMUsedMB = sample.AccelMemoryUsedMB
		}
	}

	summary.AvgCPUPercent = cpuSum / float64(len(samples))
	summary.AvgAccelUtilization = accelSum / float64(len(samples))

	if len(samples) >= 2 {
		summary.VRAMDeltaMB = samples[len(samples)-1].AccelMemoryUsedMB - samples[0].AccelMemoryUsedMB
	}

	return summary
}
