package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dshills/vecsearch/internal/searcher"
	"github.com/dshills/vecsearch/pkg/types"
)

type queryRequest struct {
	ProjectPath         string   `json:"project_path"`
	Query               string   `json:"query"`
	Limit               int      `json:"limit"`
	SimilarityThreshold *float64 `json:"similarity_threshold"`
}

type resultResponse struct {
	ChunkID    string  `json:"chunk_id"`
	Relpath    string  `json:"relpath"`
	Chunk      string  `json:"chunk"`
	Similarity float64 `json:"similarity"`
}

type searchResponse struct {
	Query      string           `json:"query"`
	Retrieval  string           `json:"retrieval"`
	Candidates int              `json:"candidates"`
	Count      int              `json:"count"`
	Results    []resultResponse `json:"results"`
	DurationMS int64            `json:"duration_ms"`
}

type relatedResponse struct {
	Query string   `json:"query"`
	Files []string `json:"files"`
	Count int      `json:"count"`
}

type statusResponse struct {
	Path                 string  `json:"path"`
	Indexed              bool    `json:"indexed"`
	DBPath               string  `json:"db_path"`
	SchemaVersion        string  `json:"schema_version"`
	ChunksCount          int     `json:"chunks_count"`
	EmbeddedCount        int     `json:"embedded_count"`
	FilesCount           int     `json:"files_count"`
	Dimension            int     `json:"dimension"`
	IndexSizeMB          float64 `json:"index_size_mb"`
	VectorIndexAvailable bool    `json:"vector_index_available"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	resp, err := s.searcher.SearchWithInfo(r.Context(), q)
	if err != nil {
		s.writeSearchError(w, "search failed", err)
		return
	}

	results := make([]resultResponse, 0, len(resp.Results))
	for _, res := range resp.Results {
		results = append(results, resultResponse{
			ChunkID:    res.ChunkID,
			Relpath:    res.Relpath,
			Chunk:      res.Chunk,
			Similarity: res.Similarity,
		})
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:      q.Text,
		Retrieval:  string(resp.Path),
		Candidates: resp.Candidates,
		Count:      len(results),
		Results:    results,
		DurationMS: resp.Duration.Milliseconds(),
	})
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	q, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	files, err := s.searcher.RelatedFiles(r.Context(), q)
	if err != nil {
		s.writeSearchError(w, "related files lookup failed", err)
		return
	}
	if files == nil {
		files = []string{}
	}

	writeJSON(w, http.StatusOK, relatedResponse{
		Query: q.Text,
		Files: files,
		Count: len(files),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "path is required"})
		return
	}

	stats, err := s.searcher.Status(r.Context(), path)
	if err != nil {
		s.writeSearchError(w, "failed to get status", err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Path:                 path,
		Indexed:              stats.EmbeddedCount > 0,
		DBPath:               stats.DBPath,
		SchemaVersion:        stats.SchemaVersion,
		ChunksCount:          stats.ChunksCount,
		EmbeddedCount:        stats.EmbeddedCount,
		FilesCount:           stats.FilesCount,
		Dimension:            stats.Dimension,
		IndexSizeMB:          stats.IndexSizeMB,
		VectorIndexAvailable: stats.VectorIndexAvailable,
	})
}

// decodeQuery parses the request body and applies configured defaults.
// It writes a 400 response and returns false on invalid input.
func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (searcher.Query, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return searcher.Query{}, false
	}
	if req.ProjectPath == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "project_path is required"})
		return searcher.Query{}, false
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return searcher.Query{}, false
	}
	if req.Limit < 0 || req.Limit > s.cfg.Search.MaxLimit {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("limit must be between 1 and %d", s.cfg.Search.MaxLimit),
		})
		return searcher.Query{}, false
	}

	threshold := s.cfg.Search.SimilarityThreshold
	if req.SimilarityThreshold != nil {
		threshold = *req.SimilarityThreshold
	}

	return searcher.Query{
		ProjectPath:         req.ProjectPath,
		Text:                req.Query,
		Limit:               s.cfg.ClampLimit(req.Limit),
		SimilarityThreshold: threshold,
	}, true
}

// writeSearchError maps error categories onto HTTP status codes
func (s *Server) writeSearchError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(message, zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf("%s: %v", message, err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, searcher.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrEmbeddingFailed):
		return http.StatusBadGateway
	case errors.Is(err, types.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
