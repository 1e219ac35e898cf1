// Package storage persists embedded chunks in a per-project SQLite database
// and answers nearest-neighbour queries over them.
//
// # Database Schema
//
// Tables:
//   - schema_version: Applied migrations
//   - vector_chunks: Chunk id, relative path, text and float32 embedding blob
//   - vec_chunks: Optional vec0 virtual table mirroring vector_chunks embeddings
//
// # Query Paths
//
// QueryIndexed asks vec0 for the k nearest rows by cosine distance. When the
// virtual table or the extension is missing it returns an error wrapping
// types.ErrIndexUnsupported, and callers fall back to ScanAll plus scoring in
// Go. Both paths order by ascending cosine distance.
//
// # Basic Usage
//
//	store, err := storage.OpenProject(ctx, "/path/to/project", storage.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.PutChunk(ctx, &types.Chunk{
//	    Relpath:   "docs/intro.md",
//	    Text:      "Getting started",
//	    Embedding: vector,
//	})
//
//	hits, err := store.QueryIndexed(ctx, queryVector, 10)
//	if errors.Is(err, types.ErrIndexUnsupported) {
//	    chunks, err := store.ScanAll(ctx)
//	    // score chunks in Go
//	}
//
// # Registry
//
// Long-running servers share open stores through a Registry:
//
//	reg, _ := storage.NewRegistry(storage.RegistryConfig{Options: storage.DefaultOptions()})
//	store, release, err := reg.Acquire(ctx, projectPath)
//	if err != nil {
//	    return err
//	}
//	defer release()
//
// # Build Tags
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Registers sqlite-vec so vec0 is available
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec"
//
// Pure Go Build (default, or purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - QueryIndexed always reports types.ErrIndexUnsupported
//
//     CGO_ENABLED=0 go build
package storage
