package ingestion

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// formatSidecar renders the page text file: a clarity line, a source line,
// a blank line, then the body.
func formatSidecar(clarity float64, sourceURL, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[OCR Clarity: %s%%]\n", strconv.FormatFloat(clarity, 'f', -1, 64))
	fmt.Fprintf(&b, "[Original Document: %s]\n\n", sourceURL)
	b.WriteString(body)
	return b.String()
}

func writeSidecar(path string, clarity float64, sourceURL, body string) error {
	if err := os.WriteFile(path, []byte(formatSidecar(clarity, sourceURL, body)), 0644); err != nil {
		return fmt.Errorf("write page text: %w", err)
	}
	return nil
}
