package monitor

import "time"

// EventType identifies the payload carried by an Event.
type EventType string

const (
	// EventSnapshot carries a CombinedSnapshot, one per tick.
	EventSnapshot EventType = "monitor"
	// EventTaskStart carries a TaskStartEvent.
	EventTaskStart EventType = "task_start"
	// EventTaskComplete carries the finalized TaskSummary.
	EventTaskComplete EventType = "task_complete"
	// EventWorkflowComplete carries a WorkflowCompleteEvent.
	EventWorkflowComplete EventType = "workflow_complete"
)

// Event is the typed unit of the publish/subscribe stream.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TaskStartEvent announces that sampling attribution moved to a task.
type TaskStartEvent struct {
	TaskID    string    `json:"task_id"`
	TaskType  string    `json:"task_type"`
	TaskTitle string    `json:"task_title"`
	Timestamp time.Time `json:"timestamp"`
}

// WorkflowCompleteEvent announces workflow-level completion with the
// total elapsed time in seconds.
type WorkflowCompleteEvent struct {
	TotalExecutionTime float64   `json:"total_execution_time"`
	Timestamp          time.Time `json:"timestamp"`
}
