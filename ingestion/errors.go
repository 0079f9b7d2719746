package ingestion

import "errors"

var (
	// ErrCheckpointStoreRequired is returned when a checkpoint store is not provided.
	ErrCheckpointStoreRequired = errors.New("checkpoint store required")

	// ErrConverterRequired is returned when a converter is not provided.
	ErrConverterRequired = errors.New("converter required")

	// ErrExtractorRequired is returned when an OCR extractor is not provided.
	ErrExtractorRequired = errors.New("ocr extractor required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoPages is returned when a document converted to zero page images.
	ErrNoPages = errors.New("document produced no pages")

	// ErrTaskPanicked is returned when a document task panicked.
	ErrTaskPanicked = errors.New("document task panicked")
)
