package ingestion

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/poiesic/pageflow/core"
)

// Discover lists the PDF files directly inside dir, sorted by name.
// Subdirectories are not searched; the extension match ignores case.
// Symlinks are followed and kept when they resolve to a regular file.
func Discover(dir string) ([]core.SourceDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list input directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		if !isRegularFile(dir, entry) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	docs := make([]core.SourceDocument, len(names))
	for i, name := range names {
		docs[i] = core.SourceDocument{
			Name:  name,
			Path:  filepath.Join(dir, name),
			Order: i,
		}
	}
	return docs, nil
}

// isRegularFile reports whether entry is a regular file, resolving symlinks.
// Broken links are skipped.
func isRegularFile(dir string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Pending returns the documents whose names are not in done, keeping their order.
func Pending(docs []core.SourceDocument, done map[string]struct{}) []core.SourceDocument {
	pending := make([]core.SourceDocument, 0, len(docs))
	for _, doc := range docs {
		if _, ok := done[doc.Name]; ok {
			continue
		}
		pending = append(pending, doc)
	}
	return pending
}
