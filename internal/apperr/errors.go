// Package apperr defines the sentinel errors shared across the feeder core.
package apperr

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrHardwareUnavailable = errors.New("hardware unavailable")
	ErrRateLimited         = errors.New("rate limited")
)
