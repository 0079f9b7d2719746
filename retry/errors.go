package retry

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when MaxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrExhausted is returned when every allowed attempt failed with a retryable error.
	ErrExhausted = errors.New("retries exhausted")
)
