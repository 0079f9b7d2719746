// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pageflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/pageflow/ai"
	"github.com/poiesic/pageflow/ai/ollama"
	"github.com/poiesic/pageflow/ai/openai"
	"github.com/poiesic/pageflow/checkpoint"
	"github.com/poiesic/pageflow/convert"
	"github.com/poiesic/pageflow/ingestion"
	"github.com/poiesic/pageflow/manifest"
	"github.com/poiesic/pageflow/ocr"
	"github.com/poiesic/pageflow/readiness"
	"github.com/poiesic/pageflow/storage"
	"github.com/poiesic/pageflow/storage/badger"
	"github.com/poiesic/pageflow/storage/chroma"
	"github.com/poiesic/pageflow/storage/pgvector"
)

// Ingestor wires every stage of a run from one Config.
// The vector store is connected on first use, after the OCR readiness gate.
type Ingestor struct {
	cfg         *ingestion.Config
	checkpoints *checkpoint.Store
	converter   convert.Converter
	extractor   ocr.Extractor
	embedder    ai.Embedder
	provider    ai.Provider
	store       storage.VectorStore
	ownsStore   bool
	pipeline    *ingestion.Pipeline
	progress    io.Writer
	readiness   []readiness.Option
	logger      *slog.Logger
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*ingestorOptions)

type ingestorOptions struct {
	logger    *slog.Logger
	converter convert.Converter
	extractor ocr.Extractor
	embedder  ai.Embedder
	store     storage.VectorStore
	progress  io.Writer
	readiness []readiness.Option
}

func WithLogger(logger *slog.Logger) IngestorOption {
	return func(o *ingestorOptions) { o.logger = logger }
}

// WithConverter replaces the pdftoppm converter.
func WithConverter(c convert.Converter) IngestorOption {
	return func(o *ingestorOptions) { o.converter = c }
}

// WithExtractor replaces the retrying OCR client.
func WithExtractor(e ocr.Extractor) IngestorOption {
	return func(o *ingestorOptions) { o.extractor = e }
}

// WithEmbedder replaces the configured embedding provider.
func WithEmbedder(e ai.Embedder) IngestorOption {
	return func(o *ingestorOptions) { o.embedder = e }
}

// WithVectorStore replaces the configured backend. The caller keeps ownership of store.
func WithVectorStore(store storage.VectorStore) IngestorOption {
	return func(o *ingestorOptions) { o.store = store }
}

// WithProgress writes a progress line to w while documents finish.
func WithProgress(w io.Writer) IngestorOption {
	return func(o *ingestorOptions) { o.progress = w }
}

// WithReadinessOptions tunes the OCR readiness check.
func WithReadinessOptions(opts ...readiness.Option) IngestorOption {
	return func(o *ingestorOptions) { o.readiness = append(o.readiness, opts...) }
}

func NewIngestor(cfg *ingestion.Config, opts ...IngestorOption) (*Ingestor, error) {
	if cfg == nil {
		cfg = ingestion.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &ingestorOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	checkpoints, err := checkpoint.Open(cfg.CheckpointPath(), logger)
	if err != nil {
		return nil, err
	}

	in := &Ingestor{
		cfg:         cfg,
		checkpoints: checkpoints,
		converter:   options.converter,
		extractor:   options.extractor,
		embedder:    options.embedder,
		store:       options.store,
		progress:    options.progress,
		readiness:   append([]readiness.Option{readiness.WithLogger(logger)}, options.readiness...),
		logger:      logger.With("component", "ingestor"),
	}

	if in.converter == nil {
		in.converter = convert.NewPDFConverter(cfg.OutputDir,
			convert.WithDPI(cfg.DPI),
			convert.WithRasterizer(cfg.Rasterizer),
			convert.WithLogger(logger))
	}

	if in.extractor == nil {
		client := ocr.NewClient(cfg.OCRHost, cfg.OCRPort, ocr.WithClientLogger(logger))
		in.extractor = ocr.NewRetryingExtractor(client, ocr.NewPolicy(cfg.MaxAttempts, cfg.RetryDelay), logger)
	}

	if in.embedder == nil {
		provider, err := newProvider(cfg.Embedding)
		if err != nil {
			return nil, err
		}
		in.provider = provider
		in.embedder = provider.Embedder()
	}
	return in, nil
}

// connect opens the configured vector store and builds the pipeline once.
func (in *Ingestor) connect(ctx context.Context) error {
	if in.pipeline != nil {
		return nil
	}

	if in.store == nil {
		store, err := newVectorStore(ctx, in.cfg, in.logger)
		if err != nil {
			return fmt.Errorf("connect vector store: %w", err)
		}
		in.store = store
		in.ownsStore = true
	}

	opts := []ingestion.Option{
		ingestion.WithLogger(in.logger),
		ingestion.WithPoolSize(in.cfg.Workers),
		ingestion.WithSourceURLs(in.cfg.FallbackBaseURL, in.cfg.RecordSourceBaseURL),
	}
	if in.progress != nil {
		opts = append(opts, ingestion.WithProgress(in.progress))
	}
	pipeline, err := ingestion.NewPipeline(in.checkpoints, in.converter, in.extractor, in.embedder, in.store, opts...)
	if err != nil {
		return err
	}
	in.pipeline = pipeline
	return nil
}

func newProvider(cfg *ai.Config) (ai.Provider, error) {
	switch cfg.Provider {
	case ai.ProviderOpenAI:
		return openai.NewProvider(cfg)
	case ai.ProviderOllama:
		return ollama.NewProvider(cfg)
	}
	return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
}

func newVectorStore(ctx context.Context, cfg *ingestion.Config, logger *slog.Logger) (storage.VectorStore, error) {
	switch cfg.VectorStore {
	case ingestion.StoreChroma:
		return chroma.NewStore(ctx, cfg.ChromaURL, cfg.Collection,
			chroma.WithTenant(cfg.ChromaTenant),
			chroma.WithDatabase(cfg.ChromaDatabase),
			chroma.WithLogger(logger))
	case ingestion.StoreBadger:
		return badger.Open(cfg.BadgerPath, cfg.Collection)
	case ingestion.StorePGVector:
		return pgvector.NewStore(ctx, cfg.PGConn, cfg.Collection)
	}
	return nil, fmt.Errorf("unsupported vector store %q", cfg.VectorStore)
}

// Run waits for the OCR service, connects the vector store, processes every
// pending document and writes the manifest. Document failures are reported
// in the summary, not as an error.
func (in *Ingestor) Run(ctx context.Context) (*ingestion.RunSummary, error) {
	if err := readiness.WaitUntilReady(ctx, in.cfg.OCRHost, in.cfg.OCRPort, in.cfg.ReadinessTimeout, in.readiness...); err != nil {
		return nil, err
	}

	if err := in.connect(ctx); err != nil {
		return nil, err
	}

	docs, err := ingestion.Discover(in.cfg.InputDir)
	if err != nil {
		return nil, err
	}
	in.logger.Info("discovered documents", "count", len(docs), "input_dir", in.cfg.InputDir)

	summary, err := in.pipeline.Run(ctx, docs)
	if err != nil {
		return nil, err
	}

	if err := manifest.Write(in.cfg.ManifestPath(), summary.Entries); err != nil {
		return summary, err
	}
	in.logger.Info("wrote manifest", "path", in.cfg.ManifestPath(), "entries", len(summary.Entries))
	return summary, nil
}

// StatusReport describes how far ingestion of the input directory has come.
type StatusReport struct {
	Discovered   int
	Checkpointed int
	Pending      int
	Records      int
}

// Status reports progress without processing anything.
func (in *Ingestor) Status(ctx context.Context) (*StatusReport, error) {
	if err := in.connect(ctx); err != nil {
		return nil, err
	}

	docs, err := ingestion.Discover(in.cfg.InputDir)
	if err != nil {
		return nil, err
	}
	done, err := in.checkpoints.Load()
	if err != nil {
		return nil, err
	}
	records, err := in.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	return &StatusReport{
		Discovered:   len(docs),
		Checkpointed: len(done),
		Pending:      len(ingestion.Pending(docs, done)),
		Records:      records,
	}, nil
}

func (in *Ingestor) Close() error {
	if in.pipeline != nil {
		in.pipeline.Release()
	}

	if in.provider != nil {
		if err := in.provider.Close(); err != nil {
			in.logger.Error("error closing embedding provider", "err", err)
		}
	}

	if in.ownsStore && in.store != nil {
		if err := in.store.Close(); err != nil {
			in.logger.Error("error closing vector store", "err", err)
			return err
		}
	}
	return nil
}
