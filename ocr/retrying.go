package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/pageflow/core"
	"github.com/poiesic/pageflow/retry"
)

const (
	// DefaultMaxAttempts is the number of OCR attempts per page.
	DefaultMaxAttempts = 20

	// DefaultRetryDelay is the pause between OCR attempts.
	DefaultRetryDelay = time.Second
)

// NewPolicy returns the OCR retry policy: maxAttempts attempts, delay apart,
// retrying only unreachable-service and non-200 failures.
func NewPolicy(maxAttempts int, delay time.Duration) retry.Policy {
	return retry.Fixed(maxAttempts, delay).WithRetryable(IsRetryable)
}

// RetryingExtractor applies a retry policy around another Extractor.
type RetryingExtractor struct {
	next   Extractor
	policy retry.Policy
	logger *slog.Logger
}

var _ Extractor = (*RetryingExtractor)(nil)

// NewRetryingExtractor wraps next with policy. A nil Retryable predicate on
// the policy is replaced with IsRetryable.
func NewRetryingExtractor(next Extractor, policy retry.Policy, logger *slog.Logger) *RetryingExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.Retryable == nil {
		policy.Retryable = IsRetryable
	}
	logger = logger.With("component", "ocr")
	policy.Logger = logger
	return &RetryingExtractor{next: next, policy: policy, logger: logger}
}

// Extract calls the wrapped extractor until it succeeds or the policy gives up.
//
// A ServiceError ends the loop and yields an empty result, so the page is
// skipped rather than failing the document. Exhaustion returns ErrOCRExhausted.
func (r *RetryingExtractor) Extract(ctx context.Context, req Request) (*core.OCRResult, error) {
	var result *core.OCRResult
	attempt := 0
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		attempt++
		res, err := r.next.Extract(ctx, req)
		if err != nil {
			if IsRetryable(err) {
				r.logger.Warn("ocr attempt failed", "image", req.ImagePath, "attempt", attempt, "max_attempts", r.policy.MaxAttempts, "err", err)
			}
			return err
		}
		result = res
		return nil
	})

	var serviceErr *ServiceError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &serviceErr):
		r.logger.Warn("ocr service reported an error", "image", req.ImagePath, "err", serviceErr.Message)
		return &core.OCRResult{}, nil
	case errors.Is(err, retry.ErrExhausted):
		return nil, fmt.Errorf("%w: %s: %w", ErrOCRExhausted, req.ImagePath, err)
	default:
		return nil, err
	}
}
