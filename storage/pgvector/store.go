// Package pgvector implements storage.VectorStore on PostgreSQL with the
// pgvector extension. Each collection is a table of
// (id uuid, embedding vector, document text, metadata jsonb).
package pgvector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/pageflow/core"
	"github.com/poiesic/pageflow/storage"
)

// Store is one collection table in a PostgreSQL database.
type Store struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore connects to connStr, ensures the vector extension and the
// collection table exist, and returns the store.
func NewStore(ctx context.Context, connStr, collection string) (storage.VectorStore, error) {
	table, err := tableName(collection)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &Store{
		pool:   pool,
		table:  table,
		logger: slog.Default().With("component", "pgvector", "collection", collection),
	}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func tableName(collection string) (string, error) {
	if strings.TrimSpace(collection) == "" || strings.ContainsRune(collection, 0) {
		return "", fmt.Errorf("%w: %q", storage.ErrInvalidCollection, collection)
	}
	return pgx.Identifier{collection}.Sanitize(), nil
}

func createTableSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		id uuid PRIMARY KEY,
		embedding vector NOT NULL,
		document text NOT NULL,
		metadata jsonb NOT NULL DEFAULT '{}'::jsonb
	)`
}

func upsertSQL(table string) string {
	return `INSERT INTO ` + table + ` (id, embedding, document, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			document = EXCLUDED.document,
			metadata = EXCLUDED.metadata`
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	if _, err := s.pool.Exec(ctx, createTableSQL(s.table)); err != nil {
		return fmt.Errorf("create collection table: %w", err)
	}
	return nil
}

// Upsert writes all records in one transaction.
func (s *Store) Upsert(ctx context.Context, records ...*core.VectorRecord) error {
	if err := storage.ValidateRecords(records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrStorageClosed
	}

	batch := &pgx.Batch{}
	query := upsertSQL(s.table)
	for _, record := range records {
		id, err := uuid.Parse(record.ID)
		if err != nil {
			return fmt.Errorf("%w: record id %q: %w", core.ErrInvalidVectorRecord, record.ID, err)
		}
		batch.Queue(query, id, pgvector.NewVector(record.Embedding), record.Text, record.Metadata)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUpsertFailed, err)
	}
	s.logger.Debug("upserted records", "count", len(records))
	return nil
}

// Count returns the number of rows in the collection table.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, storage.ErrStorageClosed
	}

	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM `+s.table).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.pool.Close()
	return nil
}
