// Package ingestion runs source documents through conversion, OCR,
// embedding and vector-store upsert on a fixed-size worker pool.
//
// Each document is owned by exactly one worker from start to finish. A
// document is appended to the checkpoint log only after every one of its
// pages was attempted, so a crashed or failed run is resumed by running
// again: checkpointed documents are skipped and everything else is redone.
//
// Page-level problems do not fail a document. A page with no OCR text is
// skipped; a page whose embedding fails is dropped and reported in
// DocumentResult.DroppedPages. OCR retry exhaustion, an upsert failure, a
// document with no pages, or a failed checkpoint write fail the document.
package ingestion
