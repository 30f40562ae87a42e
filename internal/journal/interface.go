package journal

import (
	"context"

	"codeberg.org/mutker/resmon/internal/monitor"
)

// Recorder defines the core domain interface: it persists finalized
// task summaries. Rolling telemetry snapshots are never stored.
type Recorder interface {
	Record(ctx context.Context, summary *monitor.TaskSummary) error
	Close() error
}

// Repository defines the interface for summary storage
type Repository interface {
	Store(summary *monitor.TaskSummary) error
	Close() error
}
