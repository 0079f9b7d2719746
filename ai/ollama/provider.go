package ollama

import (
	"log/slog"

	"github.com/poiesic/pageflow/ai"
)

// Provider implements ai.Provider for a local or remote Ollama server.
type Provider struct {
	embedder *Embedder
	logger   *slog.Logger
}

// NewProvider validates config and builds the Ollama embedder.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	return &Provider{
		embedder: embedder,
		logger:   slog.Default().With("component", "ollama-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (p *Provider) Close() error {
	p.logger.Debug("closing Ollama provider")
	return nil
}
