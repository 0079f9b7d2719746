package badger

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pageflow/core"
	"github.com/poiesic/pageflow/storage"
)

// Collection is a named set of vector records stored in a Backend.
type Collection struct {
	backend   *Backend
	name      string
	ownsStore bool

	mu     sync.RWMutex
	closed bool
}

var _ storage.VectorStore = (*Collection)(nil)

// NewCollection opens (or creates) the named collection on the backend.
// The caller keeps ownership of backend.
func NewCollection(backend *Backend, name string) (*Collection, error) {
	if !validCollectionName(name) {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidCollection, name)
	}
	return &Collection{backend: backend, name: name}, nil
}

// Open opens a BadgerDB database at path and returns the named collection.
// Closing the collection closes the database.
func Open(path, name string) (storage.VectorStore, error) {
	if !validCollectionName(name) {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidCollection, name)
	}
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return &Collection{backend: backend, name: name, ownsStore: true}, nil
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Upsert writes all records in a single transaction.
func (c *Collection) Upsert(ctx context.Context, records ...*core.VectorRecord) error {
	if err := storage.ValidateRecords(records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	err := c.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			value, err := storage.MarshalVectorRecord(record)
			if err != nil {
				return err
			}
			if err := tx.Set(makeVectorRecordKey(c.name, record.ID), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUpsertFailed, err)
	}

	c.backend.logger.Debug("upserted records", "collection", c.name, "count", len(records))
	return nil
}

// Get returns the record with the given ID.
func (c *Collection) Get(ctx context.Context, id string) (*core.VectorRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var record *core.VectorRecord
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorRecordKey(c.name, id))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			record, err = storage.UnmarshalVectorRecord(val)
			return err
		})
	}, false)
	return record, err
}

// All returns every record in the collection in key order.
func (c *Collection) All(ctx context.Context) ([]*core.VectorRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var records []*core.VectorRecord
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(c.name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := iter.Item().Value(func(val []byte) error {
				record, err := storage.UnmarshalVectorRecord(val)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return records, err
}

// Count returns the number of records in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	count := 0
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(c.name)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Close marks the collection closed, and closes the database if Open created it.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.ownsStore {
		return c.backend.Close()
	}
	return nil
}
