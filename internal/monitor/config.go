package monitor

import (
	"time"

	"codeberg.org/mutker/resmon/internal/errors"
)

const (
	// Valid sampling interval bounds
	MinInterval = 100 * time.Millisecond
	MaxInterval = 60 * time.Second

	// DefaultKeepCount bounds the completed task history
	DefaultKeepCount = 50

	// Recent summaries embedded in each published snapshot
	snapshotTaskLimit = 10

	// Stop waits this long for the sampling loop to exit
	stopTimeout = 2 * time.Second

	// Per-subscriber event buffer; oldest events are dropped when full
	defaultSubscriberBuffer = 16
)

type Config struct {
	Interval  time.Duration
	KeepCount int
	GPUIndex  int
}

func DefaultConfig() Config {
	return Config{
		Interval:  time.Second,
		KeepCount: DefaultKeepCount,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Interval < MinInterval || c.Interval > MaxInterval {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval.String())
	}

	if c.KeepCount < 1 {
		return errFactory.WithData(errors.ErrInvalidKeepCount, c.KeepCount)
	}

	if c.GPUIndex < 0 {
		return errFactory.WithData(errors.ErrInvalidArgument, c.GPUIndex)
	}

	return nil
}
