// Package chroma implements storage.VectorStore against a Chroma server's
// v1 HTTP API.
//
// The collection is resolved once, by name, when the store is created; it is
// created on the server if it does not exist yet. Upserts carry precomputed
// embeddings, so the server never embeds anything itself.
package chroma
