// Package ocr talks to the external text-extraction service.
//
// Client performs exactly one HTTP request per call and classifies what went
// wrong: connection failures and non-200 responses are retryable, an error
// reported in a 200 body is not. RetryingExtractor wraps any Extractor in a
// bounded fixed-delay retry.Policy.
package ocr
