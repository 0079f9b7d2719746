package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/poiesic/pageflow/core"
)

const (
	// DefaultDPI is the rasterization resolution.
	DefaultDPI = 300

	// DefaultRasterizer is the poppler tool used to render pages.
	DefaultRasterizer = "pdftoppm"
)

// Converter turns a document into page images.
// An empty result means the document could not be converted; the cause is logged.
type Converter interface {
	Convert(ctx context.Context, doc core.SourceDocument) []core.PageImage
}

// PageCounter returns the number of pages in the document at path.
type PageCounter func(path string) (int, error)

// CommandRunner runs an external program to completion.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// PDFConverter renders PDF pages to PNG files in an output directory,
// named {stem}_page_{n}.png with n starting at 1.
type PDFConverter struct {
	outputDir  string
	dpi        int
	rasterizer string
	countPages PageCounter
	run        CommandRunner
	logger     *slog.Logger
}

var _ Converter = (*PDFConverter)(nil)

// Option configures a PDFConverter.
type Option func(*PDFConverter)

// WithDPI sets the rasterization resolution.
func WithDPI(dpi int) Option {
	return func(c *PDFConverter) {
		if dpi > 0 {
			c.dpi = dpi
		}
	}
}

// WithRasterizer sets the pdftoppm-compatible binary to invoke.
func WithRasterizer(path string) Option {
	return func(c *PDFConverter) {
		if path != "" {
			c.rasterizer = path
		}
	}
}

// WithPageCounter replaces the pdfcpu page counter.
func WithPageCounter(fn PageCounter) Option {
	return func(c *PDFConverter) {
		if fn != nil {
			c.countPages = fn
		}
	}
}

// WithCommandRunner replaces the process runner used to invoke the rasterizer.
func WithCommandRunner(fn CommandRunner) Option {
	return func(c *PDFConverter) {
		if fn != nil {
			c.run = fn
		}
	}
}

// WithLogger sets the converter's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *PDFConverter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewPDFConverter returns a converter writing images into outputDir.
func NewPDFConverter(outputDir string, opts ...Option) *PDFConverter {
	c := &PDFConverter{
		outputDir:  outputDir,
		dpi:        DefaultDPI,
		rasterizer: DefaultRasterizer,
		countPages: api.PageCountFile,
		run:        runCommand,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "convert")
	return c
}

// Convert renders every page of doc in page order.
// Images already written are left in place when a later page fails.
func (c *PDFConverter) Convert(ctx context.Context, doc core.SourceDocument) []core.PageImage {
	logger := c.logger.With("document", doc.Name)

	if err := os.MkdirAll(c.outputDir, 0755); err != nil {
		logger.Error("failed to create output directory", "dir", c.outputDir, "err", err)
		return nil
	}

	count, err := c.countPages(doc.Path)
	if err != nil {
		logger.Error("failed to read page count", "path", doc.Path, "err", err)
		return nil
	}
	if count <= 0 {
		logger.Warn("document has no pages", "path", doc.Path)
		return nil
	}

	stem := doc.Stem()
	pages := make([]core.PageImage, 0, count)
	for n := 1; n <= count; n++ {
		if err := ctx.Err(); err != nil {
			logger.Error("conversion canceled", "page", n, "err", err)
			return nil
		}

		prefix := filepath.Join(c.outputDir, core.PageFileStem(stem, n))
		page := strconv.Itoa(n)
		args := []string{
			"-png",
			"-r", strconv.Itoa(c.dpi),
			"-f", page,
			"-l", page,
			"-singlefile",
			doc.Path,
			prefix,
		}
		if err := c.run(ctx, c.rasterizer, args...); err != nil {
			logger.Error("failed to rasterize page", "page", n, "err", err)
			return nil
		}

		imagePath := prefix + ".png"
		if _, err := os.Stat(imagePath); err != nil {
			logger.Error("rasterizer produced no image", "page", n, "path", imagePath, "err", err)
			return nil
		}

		pages = append(pages, core.PageImage{
			Document:  doc.Name,
			Index:     n,
			ImagePath: imagePath,
		})
	}

	logger.Debug("converted document", "pages", len(pages), "dpi", c.dpi)
	return pages
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
