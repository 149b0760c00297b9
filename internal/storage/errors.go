package storage

import "errors"

var (
	// ErrNotFound means the record was never written. It is a valid state, not a failure.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable means the backend could not be read or written.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrCorrupt means a record exists but cannot be decoded into a valid value.
	ErrCorrupt = errors.New("record corrupt")
)
