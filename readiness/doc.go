// Package readiness blocks until a TCP service accepts connections.
//
// The ingestion run checks the OCR service once, before any document is
// scheduled. A timeout is fatal for the whole run.
package readiness
