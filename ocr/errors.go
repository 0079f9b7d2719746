package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrOCRExhausted is returned when every attempt against the service failed.
	ErrOCRExhausted = errors.New("ocr retries exhausted")

	// ErrEmptyImagePath is returned when a request names no image.
	ErrEmptyImagePath = errors.New("image path required")
)

// TransientError is a failure to reach the service at all.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("ocr service unreachable: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// StatusError is a non-200 response from the service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ocr service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("ocr service returned status %d: %s", e.StatusCode, e.Body)
}

// ServiceError is an error the service reported inside a 200 response.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return "ocr service error: " + e.Message
}

// DecodeError is a 200 response whose body is not a valid result.
// The service answered, so the call is not repeated.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode ocr response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var transient *TransientError
	var status *StatusError
	return errors.As(err, &transient) || errors.As(err, &status)
}
