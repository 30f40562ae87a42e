package server

import "codeberg.org/mutker/resmon/internal/errors"

const (
	ErrServeFailed = errors.ErrorCode("server_serve_failed")
)
