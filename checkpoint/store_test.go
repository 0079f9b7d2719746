package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	store, err := Open(filepath.Join(t.TempDir(), "out", DefaultFileName), nil)
	require.NoError(t, err)
	return store
}

func TestOpen_RequiresPath(t *testing.T) {
	store, err := Open("", nil)
	assert.ErrorIs(t, err, ErrPathRequired)
	assert.Nil(t, store)
}

func TestLoad_MissingFile(t *testing.T) {
	store := newTestStore(t)

	done, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestLoad_SkipsBlankLines(t *testing.T) {
	store := newTestStore(t)
	content := "a.pdf\n\n   \nb.pdf  \r\n\tc.pdf\n"
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0644))

	done, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, done, 3)
	assert.Contains(t, done, "a.pdf")
	assert.Contains(t, done, "b.pdf")
	assert.Contains(t, done, "c.pdf")
}

func TestAppend_ThenLoad(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Append("a.pdf"))
	require.NoError(t, store.Append("b.pdf"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "a.pdf\nb.pdf\n", string(raw))

	done, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, done, 2)
}

func TestAppend_PreservesExistingEntries(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("old.pdf\n"), 0644))

	require.NoError(t, store.Append("new.pdf"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "old.pdf\nnew.pdf\n", string(raw))
}

func TestAppend_RejectsInvalidNames(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"", "   ", "a\nb.pdf", "c\r.pdf"} {
		err := store.Append(name)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}

	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "invalid names must not create the log")
}

func TestAppend_ConcurrentWritersDoNotInterleave(t *testing.T) {
	store := newTestStore(t)

	const writers = 16
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				name := fmt.Sprintf("writer-%02d-document-%03d-%s.pdf", w, i, strings.Repeat("x", 64))
				assert.NoError(t, store.Append(name))
			}
		}(w)
	}
	wg.Wait()

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	require.Len(t, lines, writers*perWriter)

	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "writer-"), "malformed line %q", line)
		assert.True(t, strings.HasSuffix(line, ".pdf"), "malformed line %q", line)
		assert.False(t, seen[line], "duplicate line %q", line)
		seen[line] = true
	}
}
