package journal

import (
	"context"

	"codeberg.org/mutker/resmon/internal/errors"
	"codeberg.org/mutker/resmon/internal/logger"
	"codeberg.org/mutker/resmon/internal/monitor"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopRecorder struct{}

func NewService(cfg Config) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If the journal is disabled, return a no-op recorder
	if !cfg.Enabled {
		logger.Debug().Msg("Journal disabled, using no-op recorder")
		return &noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg)
	if err != nil {
		return nil, err // Already wrapped with appropriate error
	}

	logger.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("Journal service initialized")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, summary *monitor.TaskSummary) error {
	errFactory := errors.New()

	if summary == nil {
		return errFactory.New(ErrInvalidSummary)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Store(summary); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrServiceShutdown, err)
	}
	return nil
}

// No-op implementation
func (*noopRecorder) Record(_ context.Context, _ *monitor.TaskSummary) error {
	return nil
}

func (*noopRecorder) Close() error {
	return nil
}

// Consume drains a subscription and records every task completion
// until the subscription closes or ctx is canceled. Record failures
// are logged and skipped so one bad write never stops the stream.
func Consume(ctx context.Context, rec Recorder, sub *monitor.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if event.Type != monitor.EventTaskComplete {
				continue
			}
			summary, ok := event.Payload.(monitor.TaskSummary)
			if !ok {
				continue
			}
			if err := rec.Record(ctx, &summary); err != nil {
				logger.Error().Err(err).Str("task_id", summary.TaskID).Msg("Failed to journal task summary")
			}
		}
	}
}
