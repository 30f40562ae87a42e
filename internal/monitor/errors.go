package monitor

import "codeberg.org/mutker/resmon/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("monitor_invalid_config")

	// Task Tracking Errors
	ErrEmptyTaskID = errors.ErrorCode("monitor_empty_task_id")

	// Lifecycle Errors
	ErrStopTimeout = errors.ErrorCode("monitor_stop_timeout")

	// Tick Errors
	ErrTickFailed = errors.ErrorCode("monitor_tick_failed")
)
