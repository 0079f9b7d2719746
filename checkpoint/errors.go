package checkpoint

import "errors"

var (
	// ErrPathRequired is returned when no checkpoint path is provided.
	ErrPathRequired = errors.New("checkpoint path required")

	// ErrInvalidName is returned for names that would corrupt the line-oriented log.
	ErrInvalidName = errors.New("invalid checkpoint name")
)
