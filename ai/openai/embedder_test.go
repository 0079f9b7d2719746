package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/pageflow/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder_EmbedText(t *testing.T) {
	var model string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		model, _ = req["model"].(string)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],"model":"text-embedding-3-small","usage":{"prompt_tokens":2,"total_tokens":2}}`))
	}))
	defer srv.Close()

	cfg := ai.NewConfig(
		ai.WithProvider(ai.ProviderOpenAI),
		ai.WithEmbeddingHost(srv.URL),
		ai.WithEmbeddingModel("text-embedding-3-small"),
	)
	embedder, err := NewEmbedder(cfg)
	require.NoError(t, err)

	vector, err := embedder.EmbedText(context.Background(), "line one\nline two")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vector)
	assert.Equal(t, "text-embedding-3-small", model)
}

func TestEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	embedder, err := NewEmbedder(ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI), ai.WithEmbeddingHost(srv.URL)))
	require.NoError(t, err)

	_, err = embedder.EmbedText(context.Background(), "text")
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI)))
	require.NoError(t, err)
	assert.NotNil(t, provider.Embedder())
	assert.NoError(t, provider.Close())
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI), ai.WithEmbeddingHost("")))
	assert.Error(t, err)
}
