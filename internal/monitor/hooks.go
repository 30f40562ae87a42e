package monitor

import (
	"time"

	"codeberg.org/mutker/resmon/internal/logger"
)

// Hooks is the entry point for the execution-hook collaborator. It is
// the only externally triggered mutation path for task state: hooks
// send start/end notifications into the tracker and mirror them onto
// the event stream.
type Hooks struct {
	monitor *Monitor
}

func (m *Monitor) Hooks() *Hooks {
	return &Hooks{monitor: m}
}

// NotifyTaskStart begins attribution for a task and broadcasts a
// task_start event. Returns a validation error for a malformed id.
func (h *Hooks) NotifyTaskStart(taskID, taskType, taskTitle string) error {
	if err := h.monitor.tracker.StartTask(taskID, taskType, taskTitle); err != nil {
		return err
	}

	now := time.Now()
	h.monitor.pub.Broadcast(Event{
		Type:      EventTaskStart,
		Timestamp: now,
		Payload: TaskStartEvent{
			TaskID:    taskID,
			TaskType:  taskType,
			TaskTitle: taskTitle,
			Timestamp: now,
		},
	})

	logger.Debug().
		Str("task_id", taskID).
		Str("task_type", taskType).
		Msg("Task tracking started")

	return nil
}

// NotifyTaskEnd finalizes a task, broadcasts its summary and returns
// it. ok=false when the task was not active (double-stop is safe).
func (h *Hooks) NotifyTaskEnd(taskID string) (TaskSummary, bool) {
	summary, ok := h.monitor.tracker.StopTask(taskID)
	if !ok {
		return TaskSummary{}, false
	}

	h.monitor.pub.Broadcast(Event{
		Type:      EventTaskComplete,
		Timestamp: summary.EndTime,
		Payload:   summary,
	})

	logger.Debug().
		Str("task_id", taskID).
		Float64("duration_ms", summary.DurationMS).
		Float64("avg_cpu_percent", summary.AvgCPUPercent).
		Float64("avg_accel_utilization", summary.AvgAccelUtilization).
		Int("sample_count", summary.SampleCount).
		Msg("Task tracking completed")

	return summary, true
}

// NotifyWorkflowComplete broadcasts workflow-level completion with the
// total elapsed time.
func (h *Hooks) NotifyWorkflowComplete(elapsed time.Duration) {
	now := time.Now()
	h.monitor.pub.Broadcast(Event{
		Type:      EventWorkflowComplete,
		Timestamp: now,
		Payload: WorkflowCompleteEvent{
			TotalExecutionTime: elapsed.Seconds(),
			Timestamp:          now,
		},
	})

	logger.Info().Dur("elapsed", elapsed).Msg("Workflow completed")
}
