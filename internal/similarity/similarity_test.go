package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vecsearch/pkg/types"
)

func TestCosineSimilarity(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, expected: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, expected: 0},
		{name: "opposite", a: []float32{1, 2, 3}, b: []float32{-1, -2, -3}, expected: -1},
		{name: "scaled copy", a: []float32{1, 2, 3}, b: []float32{2, 4, 6}, expected: 1},
		{name: "near", a: []float32{1, 0}, b: []float32{0.9, 0.1}, expected: 0.9 / math.Sqrt(0.82)},
		{name: "empty vectors", a: []float32{}, b: []float32{}, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CosineSimilarity(tc.a, tc.b)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, got, 1e-6)
		})
	}
}

func TestCosineSimilaritySymmetry(t *testing.T) {
	pairs := [][2][]float32{
		{{1, 2, 3}, {4, 5, 6}},
		{{0.3, -0.7, 0.1, 0.9}, {-0.2, 0.4, 0.8, 0.05}},
		{{1e-3, 5, -2}, {7, -1e-2, 3}},
	}

	for _, p := range pairs {
		ab, err := CosineSimilarity(p[0], p[1])
		require.NoError(t, err)
		ba, err := CosineSimilarity(p[1], p[0])
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	}
}

func TestCosineSimilaritySelf(t *testing.T) {
	vectors := [][]float32{
		{1},
		{0.5, 0.5},
		{3, -4, 12},
		{1e-4, 2e-4, 3e-4},
	}

	for _, v := range vectors {
		got, err := CosineSimilarity(v, v)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, got, 1e-9)
	}
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}

	got, err := CosineSimilarity(zero, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = CosineSimilarity([]float32{1, 2, 3}, zero)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = CosineSimilarity(zero, zero)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
	assert.False(t, math.IsNaN(got))
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)

	_, err = CosineDistance([]float32{1}, []float32{})
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestCosineSimilarityNonFinite(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	cases := [][2][]float32{
		{{nan, 0}, {1, 0}},
		{{1, 0}, {nan, 0}},
		{{inf, 0}, {1, 0}},
		{{0, 0}, {0, float32(math.Inf(-1))}},
	}
	for _, c := range cases {
		_, err := CosineSimilarity(c[0], c[1])
		assert.ErrorIs(t, err, types.ErrCorruptVector, "%v vs %v", c[0], c[1])
	}

	_, err := CosineDistance([]float32{1, 0}, []float32{nan, 0})
	assert.ErrorIs(t, err, types.ErrCorruptVector)
}

func TestCosineDistance(t *testing.T) {
	d, err := CosineDistance([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d, 1e-9)

	d, err = CosineDistance([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, d, 1e-9)
}

func TestDistanceToSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, DistanceToSimilarity(0))
	assert.Equal(t, 0.0, DistanceToSimilarity(1))
	assert.Equal(t, -1.0, DistanceToSimilarity(2))
	assert.InDelta(t, 0.75, DistanceToSimilarity(0.25), 1e-12)
}

func TestRank(t *testing.T) {
	hits := []types.Hit{
		{ChunkID: "c", Distance: 0.5},
		{ChunkID: "a", Distance: 0.1},
		{ChunkID: "d", Distance: 0.9},
		{ChunkID: "b", Distance: 0.1},
	}

	t.Run("sorts ascending with id tie-break", func(t *testing.T) {
		ranked := Rank(append([]types.Hit(nil), hits...), 0)
		require.Len(t, ranked, 4)
		assert.Equal(t, []string{"a", "b", "c", "d"}, ids(ranked))
	})

	t.Run("limit truncates", func(t *testing.T) {
		ranked := Rank(append([]types.Hit(nil), hits...), 2)
		assert.Equal(t, []string{"a", "b"}, ids(ranked))
	})

	t.Run("limit larger than input", func(t *testing.T) {
		ranked := Rank(append([]types.Hit(nil), hits...), 10)
		assert.Len(t, ranked, 4)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Rank(nil, 5))
	})
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	assert.Equal(t, zero, Normalize(zero))
}

func ids(hits []types.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ChunkID
	}
	return out
}

func BenchmarkCosineSimilarity(b *testing.B) {
	x := make([]float32, 1536)
	y := make([]float32, 1536)
	for i := range x {
		x[i] = float32(i%7) * 0.1
		y[i] = float32(i%5) * 0.2
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = CosineSimilarity(x, y)
	}
}
