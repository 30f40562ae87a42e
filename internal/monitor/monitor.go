package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/resmon/internal/errors"
	"codeberg.org/mutker/resmon/internal/logger"
	"codeberg.org/mutker/resmon/internal/metrics"
)

// Monitor runs the sampling loop: every tick it queries the metrics
// source, attributes the readings to the active task, and publishes a
// combined snapshot. Explicitly constructed and injected; callers own
// its lifecycle.
type Monitor struct {
	cfg     Config
	source  metrics.Source
	tracker *Tracker
	pub     *Publisher

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New validates cfg and builds a stopped Monitor.
func New(cfg Config, source metrics.Source) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.New().Wrap(ErrInvalidConfig, err)
	}

	return &Monitor{
		cfg:     cfg,
		source:  source,
		tracker: NewTracker(cfg.KeepCount),
		pub:     NewPublisher(),
	}, nil
}

// Tracker exposes the task-tracking API for execution hooks.
func (m *Monitor) Tracker() *Tracker {
	return m.tracker
}

// Publisher exposes the snapshot/event surface for subscribers.
func (m *Monitor) Publisher() *Publisher {
	return m.pub
}

// LatestSnapshot returns the most recently published snapshot, or
// ok=false before the first tick.
func (m *Monitor) LatestSnapshot() (CombinedSnapshot, bool) {
	return m.pub.Snapshot()
}

// Start launches the sampling loop. Idempotent: calling Start while
// running is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.loop(ctx, m.done)

	logger.Info().Dur("interval", m.cfg.Interval).Msg("Monitoring started")
}

// Stop signals the loop to exit and waits for it, bounded by a
// timeout. Safe to call when not running. Task history and active
// task state live in the tracker and survive a later restart.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel == nil {
		return nil
	}

	m.cancel()
	m.cancel = nil

	select {
	case <-m.done:
	case <-time.After(stopTimeout):
		return errors.New().New(ErrStopTimeout)
	}

	logger.Info().Msg("Monitoring stopped")

	return nil
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.tick(now)
		}
	}
}

// tick runs one sampling iteration. A failed tick is logged and
// skipped; it never terminates the loop.
func (m *Monitor) tick(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.New().Wrap(ErrTickFailed, fmt.Errorf("%v", r))
			logger.ErrorWithCode(err).Msg("Sampling tick failed")
		}
	}()

	system := m.source.QuerySystem()
	accel := m.source.QueryAccelerator(m.cfg.GPUIndex)

	m.tracker.SampleActiveTask(system, accel)

	snapshot := CombinedSnapshot{
		Timestamp:   now,
		System:      system,
		Accelerator: accel,
		RecentTasks: m.tracker.RecentSummaries(snapshotTaskLimit),
	}

	m.pub.SetLatest(snapshot)
	m.pub.Broadcast(Event{
		Type:      EventSnapshot,
		Timestamp: now,
		Payload:   snapshot,
	})
}
