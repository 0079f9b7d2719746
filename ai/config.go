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


package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds configuration for the embedding service.
type Config struct {
	// Provider selects the backend API.
	// Default: ollama
	Provider ProviderName

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434" for Ollama, "http://localhost:8080/v1" for OpenAI-compatible
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "nomic-embed-text", "text-embedding-3-small"
	EmbeddingModel string

	// Timeout bounds a single embedding request.
	// Default: 60s
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the embedding backend.
func WithProvider(provider ProviderName) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// DefaultConfig returns a Config for a local Ollama serving nomic-embed-text.
func DefaultConfig() *Config {
	return &Config{
		Provider:       ProviderOllama,
		EmbeddingHost:  "http://localhost:11434",
		EmbeddingModel: "nomic-embed-text",
		Timeout:        60 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//   cfg := NewConfig(
//       WithProvider(ProviderOpenAI),
//       WithEmbeddingHost("http://localhost:8080"),
//       WithEmbeddingModel("text-embedding-3-small"),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix; Ollama hosts lose one,
// since the native API lives at the server root.
func (c *Config) Normalize() {
	c.Provider = ProviderName(strings.ToLower(strings.TrimSpace(string(c.Provider))))
	if c.Provider == "" {
		c.Provider = ProviderOllama
	}

	host := strings.TrimSuffix(strings.TrimSpace(c.EmbeddingHost), "/")
	if host == "" {
		c.EmbeddingHost = ""
		return
	}
	switch c.Provider {
	case ProviderOpenAI:
		if !strings.HasSuffix(host, "/v1") {
			host += "/v1"
		}
	case ProviderOllama:
		host = strings.TrimSuffix(host, "/v1")
	}
	c.EmbeddingHost = host
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if !c.Provider.Valid() {
		return fmt.Errorf("ai config: unknown provider %q", c.Provider)
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.Timeout < 0 {
		return errors.New("ai config: Timeout must not be negative")
	}
	return nil
}
