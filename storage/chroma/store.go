package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/pageflow/core"
	"github.com/poiesic/pageflow/storage"
)

const (
	// DefaultURL is where a local Chroma server listens.
	DefaultURL = "http://localhost:8000"

	DefaultTenant   = "default_tenant"
	DefaultDatabase = "default_database"

	defaultTimeout = 60 * time.Second
	maxErrorBody   = 1024
)

type collection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type createCollectionRequest struct {
	Name        string `json:"name"`
	GetOrCreate bool   `json:"get_or_create"`
}

type upsertRequest struct {
	IDs        []string            `json:"ids"`
	Embeddings [][]float32         `json:"embeddings"`
	Documents  []string            `json:"documents"`
	Metadatas  []map[string]string `json:"metadatas"`
}

// Store is a Chroma collection.
type Store struct {
	baseURL    string
	tenant     string
	database   string
	collection collection
	httpClient *http.Client
	logger     *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ storage.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Store) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithTenant selects the Chroma tenant. Empty keeps the default.
func WithTenant(tenant string) Option {
	return func(s *Store) {
		if tenant != "" {
			s.tenant = tenant
		}
	}
}

// WithDatabase selects the Chroma database within the tenant. Empty keeps the default.
func WithDatabase(database string) Option {
	return func(s *Store) {
		if database != "" {
			s.database = database
		}
	}
}

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore connects to the Chroma server at baseURL and gets or creates the named collection.
func NewStore(ctx context.Context, baseURL, name string, opts ...Option) (storage.VectorStore, error) {
	return newStore(ctx, baseURL, name, opts...)
}

func newStore(ctx context.Context, baseURL, name string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidCollection, name)
	}
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("parse chroma url: %w", err)
	}

	s := &Store{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tenant:     DefaultTenant,
		database:   DefaultDatabase,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var coll collection
	err := s.do(ctx, http.MethodPost, s.collectionsPath(), createCollectionRequest{Name: name, GetOrCreate: true}, &coll)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %q: %w", name, err)
	}
	if coll.ID == "" {
		return nil, fmt.Errorf("get or create collection %q: server returned no id", name)
	}
	s.collection = coll
	s.logger = s.logger.With("component", "chroma", "collection", name)
	s.logger.Debug("using collection", "id", coll.ID)
	return s, nil
}

// collectionsPath is the v2 collections route for the store's tenant and database.
func (s *Store) collectionsPath() string {
	return "/api/v2/tenants/" + url.PathEscape(s.tenant) +
		"/databases/" + url.PathEscape(s.database) + "/collections"
}

// CollectionID returns the server-side collection identifier.
func (s *Store) CollectionID() string {
	return s.collection.ID
}

// Upsert sends all records in one request.
func (s *Store) Upsert(ctx context.Context, records ...*core.VectorRecord) error {
	if err := storage.ValidateRecords(records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrStorageClosed
	}

	req := upsertRequest{
		IDs:        make([]string, len(records)),
		Embeddings: make([][]float32, len(records)),
		Documents:  make([]string, len(records)),
		Metadatas:  make([]map[string]string, len(records)),
	}
	for i, record := range records {
		req.IDs[i] = record.ID
		req.Embeddings[i] = record.Embedding
		req.Documents[i] = record.Text
		req.Metadatas[i] = record.Metadata
	}

	path := s.collectionsPath() + "/" + url.PathEscape(s.collection.ID) + "/upsert"
	if err := s.do(ctx, http.MethodPost, path, req, nil); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUpsertFailed, err)
	}
	s.logger.Debug("upserted records", "count", len(records))
	return nil
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, storage.ErrStorageClosed
	}

	var count int
	path := s.collectionsPath() + "/" + url.PathEscape(s.collection.ID) + "/count"
	if err := s.do(ctx, http.MethodGet, path, nil, &count); err != nil {
		return 0, fmt.Errorf("count collection: %w", err)
	}
	return count, nil
}

// Close marks the store closed. Idle HTTP connections are released.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *Store) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("chroma %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode chroma response: %w", storage.ErrSerializationFailed, err)
	}
	return nil
}
