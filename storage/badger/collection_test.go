package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/pageflow/core"
	"github.com/poiesic/pageflow/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(text string) *core.VectorRecord {
	return &core.VectorRecord{
		ID:        core.NewRecordID(),
		Embedding: []float32{0.1, 0.2, 0.3},
		Text:      text,
		Metadata:  map[string]string{core.MetadataSource: "https://fake.url/" + text + ".png"},
	}
}

func newTestCollection(t *testing.T) *Collection {
	t.Helper()
	c, err := NewMemoryCollection(storage.DefaultCollection)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCollection_UpsertAndCount(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	a, b := newRecord("a"), newRecord("b")
	require.NoError(t, c.Upsert(ctx, a, b))

	count, err = c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := c.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestCollection_UpsertReplacesSameID(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)

	record := newRecord("first")
	require.NoError(t, c.Upsert(ctx, record))

	updated := *record
	updated.Text = "second"
	require.NoError(t, c.Upsert(ctx, &updated))

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := c.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Text)
}

func TestCollection_UpsertRejectsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)

	bad := newRecord("bad")
	bad.Embedding = nil
	err := c.Upsert(ctx, newRecord("good"), bad)
	assert.ErrorIs(t, err, core.ErrInvalidVectorRecord)

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "no record is written when any is invalid")
}

func TestCollection_UpsertEmpty(t *testing.T) {
	c := newTestCollection(t)
	assert.NoError(t, c.Upsert(context.Background()))
}

func TestCollection_GetMissing(t *testing.T) {
	c := newTestCollection(t)
	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCollection_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	docs, err := NewCollection(backend, "rag-docs")
	require.NoError(t, err)
	other, err := NewCollection(backend, "rag-docs-v2")
	require.NoError(t, err)

	require.NoError(t, docs.Upsert(ctx, newRecord("a")))
	require.NoError(t, other.Upsert(ctx, newRecord("b"), newRecord("c")))

	n, err := docs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = other.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Closing a collection does not close a shared backend
	require.NoError(t, docs.Close())
	assert.False(t, backend.IsClosed())
}

func TestCollection_InvalidName(t *testing.T) {
	for _, name := range []string{"", "a:b"} {
		_, err := NewMemoryCollection(name)
		assert.ErrorIs(t, err, storage.ErrInvalidCollection)
	}
}

func TestCollection_Closed(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCollection("rag-docs")
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "close is idempotent")

	assert.ErrorIs(t, c.Upsert(ctx, newRecord("a")), storage.ErrStorageClosed)
	_, err = c.Count(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestCollection_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	c := newTestCollection(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Upsert(ctx, newRecord(fmt.Sprintf("doc-%d", i))))
		}(i)
	}
	wg.Wait()

	records, err := c.All(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 20)
}

func TestOpen_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := Open(dir, "rag-docs")
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, newRecord("a")))
	require.NoError(t, store.Close())

	store, err = Open(dir, "rag-docs")
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
