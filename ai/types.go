package ai

// ProviderName selects the embedding backend.
type ProviderName string

const (
	// ProviderOllama talks to Ollama's native /api/embeddings route.
	ProviderOllama ProviderName = "ollama"

	// ProviderOpenAI talks to any OpenAI-compatible /v1 embeddings API.
	ProviderOpenAI ProviderName = "openai"
)

// Providers lists the supported embedding backends.
var Providers = []ProviderName{
	ProviderOllama,
	ProviderOpenAI,
}

// Valid reports whether p names a supported backend.
func (p ProviderName) Valid() bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}
