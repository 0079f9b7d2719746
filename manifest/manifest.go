// Package manifest writes the human-readable run summary: one line per
// page that reached the vector store.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/poiesic/pageflow/core"
)

// DefaultFileName is the manifest's file name inside the output directory.
const DefaultFileName = "manifest.txt"

// Format renders one entry as
// {file}\tpage={n}\tclarity={c}%\t{output path}.
func Format(entry core.ManifestEntry) string {
	return fmt.Sprintf("%s\tpage=%d\tclarity=%s%%\t%s",
		entry.File,
		entry.Page,
		strconv.FormatFloat(entry.Clarity, 'f', -1, 64),
		entry.OutputPath,
	)
}

// Write truncates the file at path and writes entries in the given order.
// An empty slice produces an empty file.
func Write(path string, entries []core.ManifestEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, entry := range entries {
		if _, err := w.WriteString(Format(entry) + "\n"); err != nil {
			f.Close()
			return fmt.Errorf("write manifest: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	return f.Close()
}
