package ingestion

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/poiesic/pageflow/ai"
	"github.com/poiesic/pageflow/checkpoint"
	"github.com/poiesic/pageflow/convert"
	"github.com/poiesic/pageflow/manifest"
	"github.com/poiesic/pageflow/ocr"
	"github.com/poiesic/pageflow/readiness"
	"github.com/poiesic/pageflow/storage"
	"github.com/poiesic/pageflow/storage/chroma"
)

// StoreBackend selects the vector store implementation.
type StoreBackend string

const (
	StoreChroma   StoreBackend = "chroma"
	StoreBadger   StoreBackend = "badger"
	StorePGVector StoreBackend = "pgvector"
)

const (
	// DefaultFallbackBaseURL prefixes document names in the OCR source_url.
	DefaultFallbackBaseURL = "file:///shared/incoming_docs"

	// DefaultRecordSourceBaseURL prefixes image names in record metadata.
	DefaultRecordSourceBaseURL = "https://fake.url"
)

// Config holds everything a run needs.
type Config struct {
	InputDir  string `validate:"required"`
	OutputDir string `validate:"required"`

	OCRHost          string        `validate:"required"`
	OCRPort          int           `validate:"min=1,max=65535"`
	ReadinessTimeout time.Duration `validate:"gt=0"`
	MaxAttempts      int           `validate:"min=1"`
	RetryDelay       time.Duration `validate:"gte=0"`

	Workers    int    `validate:"min=1"`
	DPI        int    `validate:"min=1"`
	Rasterizer string `validate:"required"`

	VectorStore    StoreBackend `validate:"oneof=chroma badger pgvector"`
	Collection     string       `validate:"required,excludesall=:"`
	ChromaURL      string       `validate:"required_if=VectorStore chroma,omitempty,url"`
	ChromaTenant   string
	ChromaDatabase string
	BadgerPath     string `validate:"required_if=VectorStore badger"`
	PGConn         string `validate:"required_if=VectorStore pgvector"`

	FallbackBaseURL     string `validate:"required"`
	RecordSourceBaseURL string `validate:"required"`

	Embedding *ai.Config `validate:"required"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

func WithInputDir(dir string) ConfigOption {
	return func(c *Config) { c.InputDir = dir }
}

func WithOutputDir(dir string) ConfigOption {
	return func(c *Config) { c.OutputDir = dir }
}

// WithOCREndpoint sets the OCR service's host and port.
func WithOCREndpoint(host string, port int) ConfigOption {
	return func(c *Config) {
		c.OCRHost = host
		c.OCRPort = port
	}
}

func WithReadinessTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) { c.ReadinessTimeout = timeout }
}

// WithRetry sets the OCR retry budget.
func WithRetry(maxAttempts int, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = maxAttempts
		c.RetryDelay = delay
	}
}

func WithWorkers(n int) ConfigOption {
	return func(c *Config) { c.Workers = n }
}

// WithVectorStore selects the backend and collection.
func WithVectorStore(backend StoreBackend, collection string) ConfigOption {
	return func(c *Config) {
		c.VectorStore = backend
		c.Collection = collection
	}
}

func WithChromaURL(url string) ConfigOption {
	return func(c *Config) { c.ChromaURL = url }
}

// WithChromaScope selects the Chroma tenant and database.
func WithChromaScope(tenant, database string) ConfigOption {
	return func(c *Config) {
		c.ChromaTenant = tenant
		c.ChromaDatabase = database
	}
}

func WithBadgerPath(path string) ConfigOption {
	return func(c *Config) { c.BadgerPath = path }
}

func WithPGConn(conn string) ConfigOption {
	return func(c *Config) { c.PGConn = conn }
}

func WithEmbedding(cfg *ai.Config) ConfigOption {
	return func(c *Config) { c.Embedding = cfg }
}

// WithBaseURLs sets the prefixes used for OCR source_url and record metadata.
func WithBaseURLs(fallbackBase, recordSourceBase string) ConfigOption {
	return func(c *Config) {
		c.FallbackBaseURL = fallbackBase
		c.RecordSourceBaseURL = recordSourceBase
	}
}

// DefaultConfig returns the stock local deployment: OCR on localhost:8000,
// Chroma on localhost:8001, one worker per CPU.
func DefaultConfig() *Config {
	return &Config{
		InputDir:            "/shared/incoming_docs",
		OutputDir:           "/shared/ocr_output",
		OCRHost:             "localhost",
		OCRPort:             8000,
		ReadinessTimeout:    readiness.DefaultTimeout,
		MaxAttempts:         ocr.DefaultMaxAttempts,
		RetryDelay:          ocr.DefaultRetryDelay,
		Workers:             runtime.NumCPU(),
		DPI:                 convert.DefaultDPI,
		Rasterizer:          convert.DefaultRasterizer,
		VectorStore:         StoreChroma,
		Collection:          storage.DefaultCollection,
		ChromaURL:           "http://localhost:8001",
		ChromaTenant:        chroma.DefaultTenant,
		ChromaDatabase:      chroma.DefaultDatabase,
		FallbackBaseURL:     DefaultFallbackBaseURL,
		RecordSourceBaseURL: DefaultRecordSourceBaseURL,
		Embedding:           ai.DefaultConfig(),
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize puts the configuration in canonical form.
func (c *Config) Normalize() {
	c.VectorStore = StoreBackend(strings.ToLower(strings.TrimSpace(string(c.VectorStore))))
	c.FallbackBaseURL = strings.TrimRight(c.FallbackBaseURL, "/")
	c.RecordSourceBaseURL = strings.TrimRight(c.RecordSourceBaseURL, "/")
	if c.InputDir != "" {
		c.InputDir = filepath.Clean(c.InputDir)
	}
	if c.OutputDir != "" {
		c.OutputDir = filepath.Clean(c.OutputDir)
	}
	if c.Embedding != nil {
		c.Embedding.Normalize()
	}
}

// Validate normalizes the configuration and checks it.
// Every failing field is reported.
func (c *Config) Validate() error {
	c.Normalize()

	var errs []error
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s' tag", e.Field(), e.Tag()))
		}
		sort.Strings(msgs)
		for _, m := range msgs {
			errs = append(errs, errors.New(m))
		}
	}
	if c.Embedding != nil {
		if err := c.Embedding.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// CheckpointPath is where the checkpoint log lives.
func (c *Config) CheckpointPath() string {
	return filepath.Join(c.OutputDir, checkpoint.DefaultFileName)
}

// ManifestPath is where the manifest is written.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.OutputDir, manifest.DefaultFileName)
}
