package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"github.com/poiesic/pageflow/ai"
)

// ErrEmptyEmbedding is returned when the server answers without a vector.
var ErrEmptyEmbedding = errors.New("ollama returned an empty embedding")

// Embedder implements ai.Embedder against Ollama's /api/embeddings route,
// sending {model, prompt} and reading {embedding}.
type Embedder struct {
	client *api.Client
	model  string
	logger *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	base, err := url.Parse(config.EmbeddingHost)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}

	return &Embedder{
		client: api.NewClient(base, &http.Client{Timeout: config.Timeout}),
		model:  config.EmbeddingModel,
		logger: slog.Default().With("component", "ollama-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding", "length", len(text))

	resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	vector := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}
