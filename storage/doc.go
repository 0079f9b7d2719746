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


// Package storage provides the vector-store abstraction for pageflow.
//
// The ingestion pipeline writes page records through the VectorStore
// interface. Backends live in sub-packages:
//
//   - storage/chroma: a remote Chroma server over its HTTP API
//   - storage/pgvector: PostgreSQL with the pgvector extension
//   - storage/badger: an embedded BadgerDB collection, also used in tests
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.VectorStore interface:
//
//	store, err := chroma.NewStore(ctx, "http://localhost:8000", "rag-docs")
//
// Test helpers such as badger.NewMemoryCollection return concrete types so
// tests can inspect what was written.
//
// # Thread Safety
//
// All VectorStore implementations must be safe for concurrent use; every
// worker in the pool shares one store.
package storage
