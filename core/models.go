package core

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// SourceDocument is an input file discovered in the input directory.
// Its identity is the file name; it is immutable once discovered.
type SourceDocument struct {
	Name  string // Base file name, e.g. "a.pdf". Used as the checkpoint key.
	Path  string // Full path to the file
	Order int    // Position in the sorted directory listing
}

// Stem returns the file name without its extension.
func (d SourceDocument) Stem() string {
	return strings.TrimSuffix(d.Name, filepath.Ext(d.Name))
}

// PageImage is a single rasterized page of a SourceDocument.
type PageImage struct {
	Document  string // Name of the parent SourceDocument
	Index     int    // 1-based page number
	ImagePath string // Path to the rasterized PNG
}

// PageFileStem returns the name-derived stem shared by all artifacts of a page,
// e.g. "report_page_3".
func PageFileStem(docStem string, index int) string {
	return docStem + "_page_" + strconv.Itoa(index)
}

// TextPath returns the path of the sidecar text artifact for this page.
func (p PageImage) TextPath() string {
	return strings.TrimSuffix(p.ImagePath, filepath.Ext(p.ImagePath)) + ".txt"
}

// OCRResult is the response of the OCR service for one page.
type OCRResult struct {
	CleanText      string
	ClarityPercent float64 // Heuristic: extracted length / estimated total length * 100
	FallbackURL    string  // Link back to the original source document
}

// VectorRecord is the unit upserted into the vector store, one per page.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Text      string
	Metadata  map[string]string
}

// MetadataSource is the metadata key holding the record's source URL.
const MetadataSource = "source"

// NewRecordID returns a fresh random record identifier.
// IDs are never derived from content, so re-ingesting a document creates new records.
func NewRecordID() string {
	return uuid.NewString()
}

// ManifestEntry summarizes one produced page record.
type ManifestEntry struct {
	File       string
	Page       int
	Clarity    float64
	OutputPath string // Path of the page's .txt artifact
}

// DocumentStatus is the state of a document within the pipeline.
type DocumentStatus int

const (
	StatusPending DocumentStatus = iota
	StatusConverting
	StatusOCRing
	StatusEmbedding
	StatusUpserting
	StatusCheckpointed
	StatusFailed
)

var statusNames = [...]string{
	StatusPending:      "pending",
	StatusConverting:   "converting",
	StatusOCRing:       "ocr",
	StatusEmbedding:    "embedding",
	StatusUpserting:    "upserting",
	StatusCheckpointed: "checkpointed",
	StatusFailed:       "failed",
}

func (s DocumentStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
	return statusNames[s]
}

// DocumentResult is the outcome of running one document through the pipeline.
type DocumentResult struct {
	Document     SourceDocument
	Status       DocumentStatus
	Entries      []ManifestEntry // In page order
	Records      int             // Vector records upserted
	DroppedPages []int           // Pages whose embedding failed
	SkippedPages []int           // Pages with no OCR text
	Err          error
}

// Succeeded reports whether the document reached the checkpointed state.
func (r *DocumentResult) Succeeded() bool {
	return r.Status == StatusCheckpointed
}
