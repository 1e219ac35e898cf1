package types

import "errors"

// Error categories shared by the store, the scorer and the searcher
var (
	// ErrEmbeddingFailed wraps any failure of the embedding provider
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrIndexUnsupported signals that the native vector index is absent for a store
	ErrIndexUnsupported = errors.New("native vector index unsupported")
	// ErrDimensionMismatch signals vectors of different lengths
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrCorruptVector signals a vector holding NaN or infinite values
	ErrCorruptVector = errors.New("vector contains non-finite values")
	// ErrStoreUnavailable signals that a project store cannot be opened
	ErrStoreUnavailable = errors.New("vector store unavailable")
	// ErrSearchFailed wraps any other storage or backend fault during search
	ErrSearchFailed = errors.New("vector search failed")
)

// Search result errors
var (
	ErrInvalidChunkID    = errors.New("invalid chunk ID")
	ErrMissingRelpath    = errors.New("relpath is required")
	ErrInvalidSimilarity = errors.New("similarity must be between -1 and 1")
)
