// Package ollama implements ai.Embedder on Ollama's native embeddings API.
package ollama
