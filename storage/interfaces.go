package storage

import (
	"context"

	"github.com/poiesic/pageflow/core"
)

// DefaultCollection is the collection records are written to unless configured otherwise.
const DefaultCollection = "rag-docs"

// VectorStore is a named collection of embedded text records.
type VectorStore interface {
	// Upsert writes records to the collection in one call.
	// Each record must pass core.ValidateVectorRecord; otherwise nothing is written.
	// A record whose ID already exists is replaced.
	Upsert(ctx context.Context, records ...*core.VectorRecord) error

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// ValidateRecords checks every record before a write.
func ValidateRecords(records []*core.VectorRecord) error {
	for _, record := range records {
		if err := core.ValidateVectorRecord(record); err != nil {
			return err
		}
	}
	return nil
}
