// Package types provides shared type definitions for the vecsearch engine.
//
// This package defines the domain types that cross package boundaries:
// stored chunks, raw retrieval hits and ranked search results, plus the
// error categories every layer classifies against.
//
// # Core Types
//
// Chunk is a stored unit of text together with its embedding vector:
//
//	chunk := &types.Chunk{
//	    ID:        "3f1c...",
//	    Relpath:   "internal/auth/session.go",
//	    Text:      sessionSource,
//	    Embedding: vector,
//	}
//
// Hit is a raw candidate produced by either retrieval path. It carries a
// distance (lower is better) so the native index and the fallback scan rank
// candidates the same way.
//
// SearchResult is what callers receive. Similarity is always 1 - distance:
//
//	result := types.SearchResult{
//	    ChunkID:    "3f1c...",
//	    Relpath:    "internal/auth/session.go",
//	    Chunk:      sessionSource,
//	    Similarity: 0.91,
//	}
//
// # Errors
//
// Error categories are sentinels checked with errors.Is. Only
// ErrIndexUnsupported is recovered internally; every other category reaches
// the caller wrapped around its original cause.
package types
