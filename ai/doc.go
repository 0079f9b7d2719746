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


// Package ai provides abstractions for the embedding service used by pageflow.
//
// The ingestion pipeline depends only on the Embedder interface; concrete
// clients live in sub-packages:
//
//   - ai/ollama: Ollama's native embeddings API (default)
//   - ai/openai: any OpenAI-compatible embeddings API, via langchaingo
//   - ai/mock: test doubles for unit testing without external dependencies
//
// Embedders make a single attempt per call. A failed page embedding is
// dropped by the caller rather than retried.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithEmbeddingModel("nomic-embed-text"))
//	provider, err := ollama.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
package ai
