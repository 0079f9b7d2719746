package ingestion

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/pageflow/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "/shared/incoming_docs", cfg.InputDir)
	assert.Equal(t, "/shared/ocr_output", cfg.OutputDir)
	assert.Equal(t, "localhost", cfg.OCRHost)
	assert.Equal(t, 8000, cfg.OCRPort)
	assert.Equal(t, 240*time.Second, cfg.ReadinessTimeout)
	assert.Equal(t, 20, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, 300, cfg.DPI)
	assert.Equal(t, StoreChroma, cfg.VectorStore)
	assert.Equal(t, "rag-docs", cfg.Collection)
	assert.Equal(t, "http://localhost:8001", cfg.ChromaURL)
	assert.Equal(t, "default_tenant", cfg.ChromaTenant)
	assert.Equal(t, "default_database", cfg.ChromaDatabase)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig_Options(t *testing.T) {
	embedding := ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI), ai.WithEmbeddingHost("http://embed:8080"))
	cfg := NewConfig(
		WithInputDir("/in/"),
		WithOutputDir("/out/"),
		WithOCREndpoint("ocr", 9000),
		WithReadinessTimeout(time.Minute),
		WithRetry(5, 10*time.Millisecond),
		WithWorkers(3),
		WithVectorStore(StoreBadger, "pages"),
		WithBadgerPath("/data/badger"),
		WithEmbedding(embedding),
		WithBaseURLs("file:///docs/", "https://cdn.example.com/"),
	)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/in", cfg.InputDir)
	assert.Equal(t, "/out", cfg.OutputDir)
	assert.Equal(t, "ocr", cfg.OCRHost)
	assert.Equal(t, 9000, cfg.OCRPort)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "file:///docs", cfg.FallbackBaseURL)
	assert.Equal(t, "https://cdn.example.com", cfg.RecordSourceBaseURL)
	assert.Equal(t, "http://embed:8080/v1", cfg.Embedding.EmbeddingHost)
	assert.Equal(t, filepath.Join("/out", "checkpoint.txt"), cfg.CheckpointPath())
	assert.Equal(t, filepath.Join("/out", "manifest.txt"), cfg.ManifestPath())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ConfigOption
		mutate  func(*Config)
		wantMsg string
	}{
		{name: "missing input dir", opts: []ConfigOption{WithInputDir("")}, wantMsg: "InputDir failed on 'required' tag"},
		{name: "port out of range", opts: []ConfigOption{WithOCREndpoint("localhost", 70000)}, wantMsg: "OCRPort failed on 'max' tag"},
		{name: "zero attempts", opts: []ConfigOption{WithRetry(0, time.Second)}, wantMsg: "MaxAttempts failed on 'min' tag"},
		{name: "zero workers", opts: []ConfigOption{WithWorkers(0)}, wantMsg: "Workers failed on 'min' tag"},
		{name: "zero readiness timeout", opts: []ConfigOption{WithReadinessTimeout(0)}, wantMsg: "ReadinessTimeout failed on 'gt' tag"},
		{name: "unknown backend", opts: []ConfigOption{WithVectorStore("qdrant", "rag-docs")}, wantMsg: "VectorStore failed on 'oneof' tag"},
		{name: "colon in collection", opts: []ConfigOption{WithVectorStore(StoreChroma, "a:b")}, wantMsg: "Collection failed on 'excludesall' tag"},
		{name: "chroma without url", opts: []ConfigOption{WithChromaURL("")}, wantMsg: "ChromaURL failed on 'required_if' tag"},
		{name: "chroma url malformed", opts: []ConfigOption{WithChromaURL("not a url")}, wantMsg: "ChromaURL failed on 'url' tag"},
		{name: "badger without path", opts: []ConfigOption{WithVectorStore(StoreBadger, "rag-docs")}, wantMsg: "BadgerPath failed on 'required_if' tag"},
		{name: "pgvector without conn", opts: []ConfigOption{WithVectorStore(StorePGVector, "rag-docs")}, wantMsg: "PGConn failed on 'required_if' tag"},
		{name: "missing embedding", opts: []ConfigOption{WithEmbedding(nil)}, wantMsg: "Embedding failed on 'required' tag"},
		{name: "embedding without model", mutate: func(c *Config) { c.Embedding.EmbeddingModel = "" }, wantMsg: "EmbeddingModel is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(tt.opts...)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestConfig_ValidateReportsEveryField(t *testing.T) {
	cfg := NewConfig(WithInputDir(""), WithOutputDir(""), WithWorkers(0))

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InputDir")
	assert.Contains(t, err.Error(), "OutputDir")
	assert.Contains(t, err.Error(), "Workers")
}

func TestConfig_BackendIsCaseInsensitive(t *testing.T) {
	cfg := NewConfig(WithVectorStore(" PGVector ", "rag-docs"), WithPGConn("postgres://localhost/rag"))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, StorePGVector, cfg.VectorStore)
}
