package types

import "math"

// SearchResult represents a single ranked hit
type SearchResult struct {
	// Identification
	ChunkID string
	Relpath string // Relative to project root

	// Content
	Chunk string

	// Scoring
	Similarity float64 // 1 - distance, higher is better
}

// Validate checks if the search result is well formed
func (sr *SearchResult) Validate() error {
	if sr.ChunkID == "" {
		return ErrInvalidChunkID
	}

	if sr.Relpath == "" {
		return ErrMissingRelpath
	}

	if math.IsNaN(sr.Similarity) || sr.Similarity < -1-similarityTolerance || sr.Similarity > 1+similarityTolerance {
		return ErrInvalidSimilarity
	}

	return nil
}

// similarityTolerance absorbs float32 rounding in native index distances
const similarityTolerance = 1e-6
