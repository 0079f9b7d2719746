package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/poiesic/pageflow/ai"
	"github.com/poiesic/pageflow/checkpoint"
	"github.com/poiesic/pageflow/convert"
	"github.com/poiesic/pageflow/core"
	"github.com/poiesic/pageflow/ocr"
	"github.com/poiesic/pageflow/storage"
)

// documentProcessor runs the per-document state machine:
// converting, then per page ocr, embedding, upserting, and finally checkpointed.
type documentProcessor struct {
	checkpoints         *checkpoint.Store
	converter           convert.Converter
	extractor           ocr.Extractor
	embedder            ai.Embedder
	store               storage.VectorStore
	fallbackBaseURL     string
	recordSourceBaseURL string
	logger              *slog.Logger
}

var _ processor = (*documentProcessor)(nil)

func (dp *documentProcessor) process(ctx context.Context, doc core.SourceDocument) (result *core.DocumentResult) {
	result = &core.DocumentResult{Document: doc, Status: core.StatusPending}
	logger := dp.logger.With("document", doc.Name)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("document task panicked", "stage", result.Status, "panic", r, "stack", string(debug.Stack()))
			result.Status = core.StatusFailed
			result.Err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()

	if err := dp.processPages(ctx, logger, result); err != nil {
		logger.Error("document failed", "stage", result.Status, "records", result.Records, "err", err)
		result.Status = core.StatusFailed
		result.Err = err
		return result
	}

	if err := dp.checkpoints.Append(doc.Name); err != nil {
		logger.Error("failed to checkpoint document", "err", err)
		result.Status = core.StatusFailed
		result.Err = fmt.Errorf("checkpoint: %w", err)
		return result
	}
	result.Status = core.StatusCheckpointed

	attrs := []any{"records", result.Records}
	if len(result.SkippedPages) > 0 {
		attrs = append(attrs, "skipped_pages", result.SkippedPages)
	}
	if len(result.DroppedPages) > 0 {
		attrs = append(attrs, "dropped_pages", result.DroppedPages)
		logger.Warn("document checkpointed with dropped pages", attrs...)
	} else {
		logger.Info("document checkpointed", attrs...)
	}
	return result
}

// processPages returns a document-fatal error; page-level problems are
// recorded on result and do not stop the document.
func (dp *documentProcessor) processPages(ctx context.Context, logger *slog.Logger, result *core.DocumentResult) error {
	doc := result.Document
	logger.Info("processing document")

	result.Status = core.StatusConverting
	pages := dp.converter.Convert(ctx, doc)
	if len(pages) == 0 {
		return ErrNoPages
	}
	logger.Debug("converted document", "pages", len(pages))

	sourceURL := dp.fallbackBaseURL + "/" + doc.Name
	for _, page := range pages {
		if err := dp.processPage(ctx, logger.With("page", page.Index), sourceURL, page, result); err != nil {
			return fmt.Errorf("page %d: %w", page.Index, err)
		}
	}
	return nil
}

func (dp *documentProcessor) processPage(ctx context.Context, logger *slog.Logger, sourceURL string, page core.PageImage, result *core.DocumentResult) error {
	result.Status = core.StatusOCRing
	extracted, err := dp.extractor.Extract(ctx, ocr.Request{ImagePath: page.ImagePath, SourceURL: sourceURL})
	if err != nil {
		return err
	}

	text := strings.TrimSpace(extracted.CleanText)
	if text == "" {
		logger.Info("no text extracted, skipping page")
		result.SkippedPages = append(result.SkippedPages, page.Index)
		return nil
	}

	originURL := extracted.FallbackURL
	if originURL == "" {
		originURL = sourceURL
	}
	textPath := page.TextPath()
	if err := writeSidecar(textPath, extracted.ClarityPercent, originURL, text); err != nil {
		return err
	}
	logger.Info("ocr complete", "text", filepath.Base(textPath), "clarity", extracted.ClarityPercent)

	result.Status = core.StatusEmbedding
	vector, err := dp.embedder.EmbedText(ctx, text)
	if err == nil && len(vector) == 0 {
		err = errors.New("no embedding returned")
	}
	if err != nil {
		logger.Error("embedding failed, dropping page", "err", err)
		result.DroppedPages = append(result.DroppedPages, page.Index)
		return nil
	}

	result.Status = core.StatusUpserting
	record := &core.VectorRecord{
		ID:        core.NewRecordID(),
		Embedding: vector,
		Text:      text,
		Metadata: map[string]string{
			core.MetadataSource: dp.recordSourceBaseURL + "/" + filepath.Base(page.ImagePath),
		},
	}
	if err := dp.store.Upsert(ctx, record); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	logger.Info("inserted record", "id", record.ID)

	result.Records++
	result.Entries = append(result.Entries, core.ManifestEntry{
		File:       result.Document.Name,
		Page:       page.Index,
		Clarity:    extracted.ClarityPercent,
		OutputPath: textPath,
	})
	return nil
}
