package monitor

import (
	"sync"
	"time"

	"codeberg.org/mutker/resmon/internal/errors"
	"codeberg.org/mutker/resmon/internal/metrics"
)

// task is an active unit of work accumulating samples. The sampler is
// the only writer to the sample buffer, always under the tracker lock.
type task struct {
	id      string
	typ     string
	title   string
	start   time.Time
	samples []Sample
}

// Tracker attributes samples to the currently active task and keeps a
// bounded, insertion-ordered history of completed task summaries.
//
// Attribution is single-current: several tasks may sit in the active
// set (started but not yet stopped), but samples only ever land on the
// most recently started one. Nested tasks therefore attribute to the
// innermost, which fits a single-worker execution pipeline.
type Tracker struct {
	mu        sync.Mutex
	currentID string
	active    map[string]*task
	history   []TaskSummary
	keepCount int
	now       func() time.Time
}

func NewTracker(keepCount int) *Tracker {
	if keepCount < 1 {
		keepCount = DefaultKeepCount
	}

	return &Tracker{
		active:    make(map[string]*task),
		keepCount: keepCount,
		now:       time.Now,
	}
}

// StartTask begins attribution for id. Restarting an id that is
// already active discards the previous record: last writer wins.
func (t *Tracker) StartTask(id, taskType, title string) error {
	if id == "" {
		return errors.New().New(ErrEmptyTaskID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.active[id] = &task{
		id:    id,
		typ:   taskType,
		title: title,
		start: t.now(),
	}
	t.currentID = id

	return nil
}

// SampleActiveTask appends one sample, derived from the two snapshots,
// to the current task's buffer. A no-op when nothing is being tracked.
func (t *Tracker) SampleActiveTask(system metrics.SystemSnapshot, accel metrics.AcceleratorSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.currentID == "" {
		return
	}
	current, ok := t.active[t.currentID]
	if !ok {
		return
	}

	current.samples = append(current.samples, Sample{
		Timestamp:         t.now(),
		CPUPercent:        system.CPUPercent,
		AccelUtilization:  accel.UtilizationPercent,
		AccelMemoryUsedMB: accel.VRAMUsedMB,
	})
}

// StopTask finalizes id: reduces its samples to a TaskSummary, moves
// the summary into history and discards the sample buffer. Stopping an
// id that is not active returns ok=false, so double-stop is safe.
func (t *Tracker) StopTask(id string) (TaskSummary, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stopped, ok := t.active[id]
	if !ok {
		return TaskSummary{}, false
	}
	delete(t.active, id)

	if t.currentID == id {
		t.currentID = ""
	}

	summary := summarize(stopped.id, stopped.typ, stopped.title, stopped.start, t.now(), stopped.samples)

	t.history = append(t.history, summary)
	if len(t.history) > t.keepCount {
		t.history = t.history[len(t.history)-t.keepCount:]
	}

	return summary, true
}

// RecentSummaries returns up to limit most recently completed
// summaries, ordered oldest to newest.
func (t *Tracker) RecentSummaries(limit int) []TaskSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	if limit <= 0 || len(t.history) == 0 {
		return nil
	}
	if limit > len(t.history) {
		limit = len(t.history)
	}

	recent := make([]TaskSummary, limit)
	copy(recent, t.history[len(t.history)-limit:])

	return recent
}

// ActiveCount returns the number of started-but-not-stopped tasks.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.active)
}

// CurrentTaskID returns the id samples are currently attributed to,
// or "" when none.
func (t *Tracker) CurrentTaskID() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.currentID
}
