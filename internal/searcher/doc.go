// Package searcher implements ranked vector retrieval over project stores.
//
// # Algorithm
//
// A search embeds the query text, opens the project's store, and asks the
// native vector index for the Limit nearest chunks. When the store reports
// types.ErrIndexUnsupported the searcher scans every embedded chunk, scores
// it with cosine distance in Go, and keeps the Limit nearest. Either way each
// candidate's similarity is 1 - distance, and candidates below the threshold
// are dropped afterwards:
//
//	embed → QueryIndexed ─ok──────────────┐
//	          └─unsupported→ ScanAll+Rank ─┴→ 1-distance → threshold → results
//
// Limit bounds the candidate pool, not the result count. A query with
// Limit 10 may return anywhere from zero to ten results.
//
// # Basic Usage
//
//	reg, _ := storage.NewRegistry(storage.RegistryConfig{Options: storage.DefaultOptions()})
//	defer reg.CloseAll()
//
//	s := searcher.NewSearcher(reg, emb, logger)
//	results, err := s.Search(ctx, searcher.NewQuery("/path/to/project", "session refresh"))
//	for _, r := range results {
//	    fmt.Printf("%.3f %s\n", r.Similarity, r.Relpath)
//	}
//
// # Errors
//
// Only types.ErrIndexUnsupported is handled internally. Embedding failures
// wrap types.ErrEmbeddingFailed, store open failures wrap
// types.ErrStoreUnavailable, and every other fault wraps types.ErrSearchFailed
// with the original cause still reachable through errors.Is. A stored vector
// whose length differs from the query aborts the search with
// types.ErrDimensionMismatch rather than being skipped.
//
// # Related Files
//
// RelatedFiles reduces results to distinct relpaths in first-seen order.
// RelatedFilesMany runs several queries concurrently and unions their files.
package searcher
