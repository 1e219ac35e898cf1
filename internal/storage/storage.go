package storage

import (
	"context"

	"github.com/dshills/vecsearch/pkg/types"
)

// Store is the read path over one project's embedded-chunk corpus
type Store interface {
	// QueryIndexed asks the native vector index for the limit nearest chunks,
	// ordered by ascending distance. It returns an error wrapping
	// types.ErrIndexUnsupported when the index is absent for this store.
	QueryIndexed(ctx context.Context, queryVector []float32, limit int) ([]types.Hit, error)

	// ScanAll returns every chunk that has an embedding. Cost is linear in
	// corpus size; it backs the fallback path only.
	ScanAll(ctx context.Context) ([]types.Chunk, error)

	// Stats reports corpus statistics and index health
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the underlying connection
	Close() error
}

// Writer is implemented by stores that ingestion collaborators populate.
// The search path never calls it.
type Writer interface {
	PutChunk(ctx context.Context, chunk *types.Chunk) error
	DeleteChunksByRelpath(ctx context.Context, relpath string) (int, error)
	CreateVectorIndex(ctx context.Context, dimension int) error
}

// StoreSource hands out project stores. Callers must invoke the returned
// release func once they are done with the store.
type StoreSource interface {
	Acquire(ctx context.Context, projectPath string) (Store, func(), error)
}

// Options controls where a project's store lives
type Options struct {
	DirName  string // Directory under the project root
	FileName string // Database file inside DirName
}

// Default store location relative to the project root
const (
	DefaultDirName  = ".vecsearch"
	DefaultFileName = "vectors.db"
)

// DefaultOptions returns the default store location
func DefaultOptions() Options {
	return Options{
		DirName:  DefaultDirName,
		FileName: DefaultFileName,
	}
}

// Stats contains statistics about a project store
type Stats struct {
	DBPath               string
	SchemaVersion        string
	ChunksCount          int
	EmbeddedCount        int
	FilesCount           int
	Dimension            int // 0 when no chunk is embedded
	IndexSizeMB          float64
	VectorIndexAvailable bool
}
