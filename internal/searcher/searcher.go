package searcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/vecsearch/internal/embedder"
	"github.com/dshills/vecsearch/internal/similarity"
	"github.com/dshills/vecsearch/internal/storage"
	"github.com/dshills/vecsearch/pkg/types"
)

// Query defaults
const (
	DefaultLimit               = 10
	DefaultSimilarityThreshold = 0.7
)

// ErrInvalidQuery is returned for queries missing text or a project path
var ErrInvalidQuery = errors.New("invalid search query")

// RetrievalPath names the backend that produced the candidates
type RetrievalPath string

const (
	PathIndexed RetrievalPath = "indexed" // Native vector index
	PathScan    RetrievalPath = "scan"    // Full scan scored in Go
)

// Query contains parameters for a search operation
type Query struct {
	ProjectPath         string
	Text                string
	Limit               int     // Candidate pool size; <= 0 uses DefaultLimit
	SimilarityThreshold float64 // Inclusive lower bound on similarity
}

// NewQuery returns a query with the default limit and threshold
func NewQuery(projectPath, text string) Query {
	return Query{
		ProjectPath:         projectPath,
		Text:                text,
		Limit:               DefaultLimit,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// Response contains search results and metadata
type Response struct {
	Results    []types.SearchResult
	Path       RetrievalPath
	Candidates int // Hits considered before the threshold filter
	Duration   time.Duration
}

// Searcher runs ranked retrieval over project stores
type Searcher struct {
	stores   storage.StoreSource
	embedder embedder.Embedder
	logger   *zap.Logger
}

// NewSearcher creates a new Searcher instance. A nil logger disables logging.
func NewSearcher(stores storage.StoreSource, emb embedder.Embedder, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{
		stores:   stores,
		embedder: emb,
		logger:   logger,
	}
}

// Search returns the chunks most similar to q.Text, best first.
//
// The top q.Limit candidates are selected by distance before the threshold
// is applied, so fewer than q.Limit results may come back even when more
// chunks would pass the threshold.
func (s *Searcher) Search(ctx context.Context, q Query) ([]types.SearchResult, error) {
	resp, err := s.SearchWithInfo(ctx, q)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// SearchWithInfo is Search plus retrieval metadata
func (s *Searcher) SearchWithInfo(ctx context.Context, q Query) (*Response, error) {
	startTime := time.Now()

	if err := validateQuery(&q); err != nil {
		return nil, err
	}

	queryVector, err := s.embed(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	store, release, err := s.acquire(ctx, q.ProjectPath)
	if err != nil {
		return nil, err
	}
	defer release()

	path := PathIndexed
	hits, err := store.QueryIndexed(ctx, queryVector, q.Limit)
	if errors.Is(err, types.ErrIndexUnsupported) {
		s.logger.Warn("native vector index unavailable, using full scan",
			zap.String("project", q.ProjectPath),
			zap.Error(err))

		path = PathScan
		hits, err = scanAndRank(ctx, store, queryVector, q.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSearchFailed, err)
	}

	results := filterByThreshold(hits, q.SimilarityThreshold)

	resp := &Response{
		Results:    results,
		Path:       path,
		Candidates: len(hits),
		Duration:   time.Since(startTime),
	}

	s.logger.Debug("search completed",
		zap.String("project", q.ProjectPath),
		zap.String("path", string(path)),
		zap.Int("candidates", resp.Candidates),
		zap.Int("results", len(results)),
		zap.Duration("duration", resp.Duration))

	return resp, nil
}

// RelatedFiles returns the distinct files behind the results of Search
func (s *Searcher) RelatedFiles(ctx context.Context, q Query) ([]string, error) {
	results, err := s.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return UniqueRelpaths(results), nil
}

// RelatedFilesMany runs several queries concurrently and returns the union
// of their related files. Relpaths keep the order of the query that first
// produced them. The first failure cancels the remaining queries.
func (s *Searcher) RelatedFilesMany(ctx context.Context, queries []Query) ([]string, error) {
	perQuery := make([][]types.SearchResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			results, err := s.Search(gctx, q)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			perQuery[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []types.SearchResult
	for _, results := range perQuery {
		all = append(all, results...)
	}
	return UniqueRelpaths(all), nil
}

// Status reports store statistics for a project
func (s *Searcher) Status(ctx context.Context, projectPath string) (*storage.Stats, error) {
	if projectPath == "" {
		return nil, fmt.Errorf("%w: project path is required", ErrInvalidQuery)
	}

	store, release, err := s.acquire(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	defer release()

	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSearchFailed, err)
	}
	return stats, nil
}

// embed obtains the query vector
func (s *Searcher) embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: embedder not initialized", types.ErrEmbeddingFailed)
	}

	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrEmbeddingFailed, err)
	}
	if emb == nil || len(emb.Vector) == 0 {
		return nil, fmt.Errorf("%w: provider returned an empty vector", types.ErrEmbeddingFailed)
	}
	return emb.Vector, nil
}

// acquire opens the project store
func (s *Searcher) acquire(ctx context.Context, projectPath string) (storage.Store, func(), error) {
	store, release, err := s.stores.Acquire(ctx, projectPath)
	if err != nil {
		if errors.Is(err, types.ErrStoreUnavailable) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}
	return store, release, nil
}

// scanAndRank scores every stored chunk against queryVector and keeps the
// limit nearest. A stored vector of the wrong length or with non-finite
// values aborts the search.
func scanAndRank(ctx context.Context, store storage.Store, queryVector []float32, limit int) ([]types.Hit, error) {
	chunks, err := store.ScanAll(ctx)
	if err != nil {
		return nil, err
	}

	hits := make([]types.Hit, 0, len(chunks))
	for _, chunk := range chunks {
		distance, err := similarity.CosineDistance(queryVector, chunk.Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s (%s): %w", chunk.ID, chunk.Relpath, err)
		}
		hits = append(hits, types.Hit{
			ChunkID:  chunk.ID,
			Relpath:  chunk.Relpath,
			Chunk:    chunk.Text,
			Distance: distance,
		})
	}

	return similarity.Rank(hits, limit), nil
}

// filterByThreshold converts distances to similarities and drops hits below
// threshold. Input order is preserved.
func filterByThreshold(hits []types.Hit, threshold float64) []types.SearchResult {
	results := make([]types.SearchResult, 0, len(hits))
	for _, hit := range hits {
		sim := similarity.DistanceToSimilarity(hit.Distance)
		// NaN fails every comparison and is dropped here
		if !(sim >= threshold) {
			continue
		}
		results = append(results, types.SearchResult{
			ChunkID:    hit.ChunkID,
			Relpath:    hit.Relpath,
			Chunk:      hit.Chunk,
			Similarity: sim,
		})
	}
	return results
}

// UniqueRelpaths returns each relpath in results once, in first-seen order
func UniqueRelpaths(results []types.SearchResult) []string {
	seen := make(map[string]struct{}, len(results))
	relpaths := make([]string, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.Relpath]; ok {
			continue
		}
		seen[r.Relpath] = struct{}{}
		relpaths = append(relpaths, r.Relpath)
	}
	return relpaths
}

// validateQuery ensures the query is usable and applies defaults
func validateQuery(q *Query) error {
	if q.Text == "" {
		return fmt.Errorf("%w: query text cannot be empty", ErrInvalidQuery)
	}
	if q.ProjectPath == "" {
		return fmt.Errorf("%w: project path is required", ErrInvalidQuery)
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return nil
}
