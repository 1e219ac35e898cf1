package searcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/vecsearch/internal/storage"
	"github.com/dshills/vecsearch/pkg/types"
)

func seedProject(t *testing.T, chunks []types.Chunk) string {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := storage.OpenProject(ctx, dir, storage.DefaultOptions())
	require.NoError(t, err)
	defer store.Close()

	for i := range chunks {
		require.NoError(t, store.PutChunk(ctx, &chunks[i]))
	}
	return dir
}

func TestSearch_SQLiteStore(t *testing.T) {
	dir := seedProject(t, scenarioChunks())

	reg, err := storage.NewRegistry(storage.RegistryConfig{Options: storage.DefaultOptions()})
	require.NoError(t, err)
	defer reg.CloseAll()

	s := NewSearcher(reg, vectorEmbedder([]float32{1, 0}), zaptest.NewLogger(t))
	q := Query{ProjectPath: dir, Text: "east", Limit: 2, SimilarityThreshold: 0.5}

	scan, err := s.SearchWithInfo(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, PathScan, scan.Path)
	require.Len(t, scan.Results, 2)
	assert.Equal(t, "east", scan.Results[0].ChunkID)
	assert.Equal(t, "mostly-east", scan.Results[1].ChunkID)

	files, err := s.RelatedFiles(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "c.md"}, files)

	if !storage.VectorExtensionAvailable {
		return
	}

	// Same data through the native index ranks identically
	store, err := storage.OpenProject(context.Background(), dir, storage.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, store.CreateVectorIndex(context.Background(), 2))
	require.NoError(t, store.Close())
	require.NoError(t, reg.Close(dir))

	indexed, err := s.SearchWithInfo(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, PathIndexed, indexed.Path)
	require.Len(t, indexed.Results, len(scan.Results))
	for i := range scan.Results {
		assert.Equal(t, scan.Results[i].ChunkID, indexed.Results[i].ChunkID)
		assert.InDelta(t, scan.Results[i].Similarity, indexed.Results[i].Similarity, 1e-5)
	}
}

func TestStatus_SQLiteStore(t *testing.T) {
	dir := seedProject(t, scenarioChunks())

	reg, err := storage.NewRegistry(storage.RegistryConfig{})
	require.NoError(t, err)
	defer reg.CloseAll()

	s := NewSearcher(reg, vectorEmbedder([]float32{1, 0}), nil)
	stats, err := s.Status(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.ChunksCount)
	assert.Equal(t, 2, stats.Dimension)
	assert.Equal(t, 3, stats.FilesCount)
}
