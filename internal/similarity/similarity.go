// Package similarity computes cosine similarity between embedding vectors and
// ranks retrieval hits by distance.
//
// Both retrieval paths in the searcher speak in distances (lower is better).
// The native index reports its own distance; the fallback scan computes
// CosineDistance here. Either way the reported similarity is 1 - distance.
package similarity

import (
	"fmt"
	"math"
	"sort"

	"github.com/dshills/vecsearch/pkg/types"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Accumulation is done in float64. A zero-norm vector yields 0; a NaN or
// infinite element in either vector is types.ErrCorruptVector.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", types.ErrDimensionMismatch, len(a), len(b))
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if !isFinite(normA) || !isFinite(normB) {
		return 0, types.ErrCorruptVector
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// CosineDistance returns 1 - CosineSimilarity(a, b)
func CosineDistance(a, b []float32) (float64, error) {
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}

// DistanceToSimilarity converts a backend distance into a similarity score
func DistanceToSimilarity(distance float64) float64 {
	return 1 - distance
}

// Rank sorts hits by ascending distance and keeps the first limit entries.
// Equal distances are ordered by chunk ID so repeated scans over the same
// data return the same order. A non-positive limit keeps every hit.
func Rank(hits []types.Hit, limit int) []types.Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if limit > 0 && limit < len(hits) {
		hits = hits[:limit]
	}
	return hits
}

// Normalize scales v to unit length. Zero vectors are returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = float32(float64(val) / norm)
	}

	return result
}
