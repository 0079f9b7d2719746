package pgvector

import (
	"context"
	"os"
	"testing"

	"github.com/poiesic/pageflow/core"
	"github.com/poiesic/pageflow/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableName(t *testing.T) {
	name, err := tableName("rag-docs")
	require.NoError(t, err)
	assert.Equal(t, `"rag-docs"`, name)

	name, err = tableName(`we"ird`)
	require.NoError(t, err)
	assert.Equal(t, `"we""ird"`, name)

	_, err = tableName("  ")
	assert.ErrorIs(t, err, storage.ErrInvalidCollection)
}

func TestSQL(t *testing.T) {
	assert.Contains(t, createTableSQL(`"rag-docs"`), `CREATE TABLE IF NOT EXISTS "rag-docs"`)
	assert.Contains(t, upsertSQL(`"rag-docs"`), `ON CONFLICT (id) DO UPDATE`)
}

// TestStore_Postgres runs against a live database when PAGEFLOW_TEST_PG_CONN is set.
func TestStore_Postgres(t *testing.T) {
	connStr := os.Getenv("PAGEFLOW_TEST_PG_CONN")
	if connStr == "" {
		t.Skip("PAGEFLOW_TEST_PG_CONN not set")
	}

	ctx := context.Background()
	collection := "pageflow_test_" + core.NewRecordID()[:8]
	store, err := NewStore(ctx, connStr, collection)
	require.NoError(t, err)
	defer func() {
		s := store.(*Store)
		_, _ = s.pool.Exec(ctx, "DROP TABLE IF EXISTS "+s.table)
		store.Close()
	}()

	record := &core.VectorRecord{
		ID:        core.NewRecordID(),
		Embedding: []float32{0.1, 0.2, 0.3},
		Text:      "page text",
		Metadata:  map[string]string{core.MetadataSource: "https://fake.url/a_page_1.png"},
	}
	require.NoError(t, store.Upsert(ctx, record))
	require.NoError(t, store.Upsert(ctx, record), "same id replaces")

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	bad := *record
	bad.ID = "not-a-uuid"
	assert.ErrorIs(t, store.Upsert(ctx, &bad), core.ErrInvalidVectorRecord)
}
