package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/pageflow/ai"
	"github.com/poiesic/pageflow/checkpoint"
	"github.com/poiesic/pageflow/convert"
	"github.com/poiesic/pageflow/core"
	"github.com/poiesic/pageflow/ocr"
	"github.com/poiesic/pageflow/storage"
)

// Pipeline fans pending documents out to a fixed-size worker pool.
type Pipeline struct {
	checkpoints *checkpoint.Store
	pool        *ants.Pool
	proc        processor

	fallbackBaseURL     string
	recordSourceBaseURL string
	progress            io.Writer
	logger              *slog.Logger
}

// RunSummary describes one Run.
type RunSummary struct {
	Discovered int
	Skipped    int // Already checkpointed before the run
	Succeeded  int
	Failed     int
	Records    int
	Entries    []core.ManifestEntry // Grouped by document in completion order, pages ascending
	Results    []*core.DocumentResult
	Elapsed    time.Duration
}

type Option func(*Pipeline) error

// WithPoolSize sets the number of documents processed concurrently.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := newPool(size, p.logger)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithSourceURLs sets the prefixes used for the OCR source_url and record metadata.
func WithSourceURLs(fallbackBase, recordSourceBase string) Option {
	return func(p *Pipeline) error {
		if fallbackBase != "" {
			p.fallbackBaseURL = fallbackBase
		}
		if recordSourceBase != "" {
			p.recordSourceBaseURL = recordSourceBase
		}
		return nil
	}
}

// WithProgress writes a progress line to w as documents finish.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

func NewPipeline(
	checkpoints *checkpoint.Store,
	converter convert.Converter,
	extractor ocr.Extractor,
	embedder ai.Embedder,
	store storage.VectorStore,
	opts ...Option,
) (*Pipeline, error) {
	if checkpoints == nil {
		return nil, ErrCheckpointStoreRequired
	}
	if converter == nil {
		return nil, ErrConverterRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrVectorStoreRequired
	}

	p := &Pipeline{
		checkpoints:         checkpoints,
		fallbackBaseURL:     DefaultFallbackBaseURL,
		recordSourceBaseURL: DefaultRecordSourceBaseURL,
		logger:              slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	if p.pool == nil {
		pool, err := newPool(runtime.NumCPU(), p.logger)
		if err != nil {
			return nil, err
		}
		p.pool = pool
	}

	p.proc = &documentProcessor{
		checkpoints:         checkpoints,
		converter:           converter,
		extractor:           extractor,
		embedder:            embedder,
		store:               store,
		fallbackBaseURL:     p.fallbackBaseURL,
		recordSourceBaseURL: p.recordSourceBaseURL,
		logger:              p.logger.With("processor", "document"),
	}

	return p, nil
}

// PoolSize returns the number of workers.
func (p *Pipeline) PoolSize() int {
	return p.pool.Cap()
}

// Pending loads the checkpoint log once and filters docs against it.
func (p *Pipeline) Pending(docs []core.SourceDocument) ([]core.SourceDocument, error) {
	done, err := p.checkpoints.Load()
	if err != nil {
		return nil, err
	}
	return Pending(docs, done), nil
}

// Run processes every document in docs that is not yet checkpointed and
// waits for all of them. Per-document failures are reported in the summary,
// not as an error.
func (p *Pipeline) Run(ctx context.Context, docs []core.SourceDocument) (*RunSummary, error) {
	start := time.Now()

	pending, err := p.Pending(docs)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{
		Discovered: len(docs),
		Skipped:    len(docs) - len(pending),
	}
	p.logger.Info("documents pending", "pending", len(pending), "skipped", summary.Skipped, "workers", p.pool.Cap())

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(pending))
		tracker.Start()
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	collect := func(result *core.DocumentResult) {
		mu.Lock()
		summary.Results = append(summary.Results, result)
		mu.Unlock()
		if tracker != nil {
			tracker.Done(result.Succeeded())
		}
	}

	for _, doc := range pending {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			collect(p.proc.process(ctx, doc))
		})
		if err != nil {
			wg.Done()
			p.logger.Error("failed to schedule document", "document", doc.Name, "err", err)
			collect(&core.DocumentResult{
				Document: doc,
				Status:   core.StatusFailed,
				Err:      fmt.Errorf("schedule: %w", err),
			})
		}
	}
	wg.Wait()

	if tracker != nil {
		tracker.Finish()
	}

	for _, result := range summary.Results {
		if result.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.Records += result.Records
		summary.Entries = append(summary.Entries, result.Entries...)
	}
	summary.Elapsed = time.Since(start)

	p.logger.Info("run complete",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"records", summary.Records,
		"elapsed", summary.Elapsed.Round(time.Millisecond))
	return summary, nil
}

func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// antsLogger routes pool messages into slog.
type antsLogger struct {
	logger *slog.Logger
}

func (l antsLogger) Printf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func newPool(size int, logger *slog.Logger) (*ants.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pool")
	return ants.NewPool(size,
		ants.WithLogger(antsLogger{logger: logger}),
		ants.WithPanicHandler(func(r any) {
			logger.Error("worker panicked", "panic", r)
		}),
	)
}
