package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/vecsearch/internal/searcher"
	"github.com/dshills/vecsearch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound = -32001 // Project store cannot be opened
	ErrorCodeEmbeddingFailed = -32002 // Embedding provider failed
	ErrorCodeDataCorruption  = -32003 // Stored vectors are inconsistent
	ErrorCodeEmptyQuery      = -32004 // Query parameter is empty
)

// handleSearchVectors handles the search_vectors tool invocation
func (s *Server) handleSearchVectors(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := s.parseQuery(request)
	if err != nil {
		return nil, err
	}

	resp, err := s.searcher.SearchWithInfo(ctx, q)
	if err != nil {
		return nil, s.toMCPError("search failed", err)
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]interface{}{
			"chunk_id":   r.ChunkID,
			"relpath":    r.Relpath,
			"chunk":      r.Chunk,
			"similarity": r.Similarity,
		})
	}

	response := map[string]interface{}{
		"query":       q.Text,
		"results":     results,
		"count":       len(results),
		"candidates":  resp.Candidates,
		"retrieval":   string(resp.Path),
		"duration_ms": resp.Duration.Milliseconds(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRelatedFiles handles the related_files tool invocation
func (s *Server) handleRelatedFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := s.parseQuery(request)
	if err != nil {
		return nil, err
	}

	files, err := s.searcher.RelatedFiles(ctx, q)
	if err != nil {
		return nil, s.toMCPError("related files lookup failed", err)
	}

	response := map[string]interface{}{
		"query": q.Text,
		"files": files,
		"count": len(files),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	stats, err := s.searcher.Status(ctx, path)
	if err != nil {
		return nil, s.toMCPError("failed to get status", err)
	}

	response := map[string]interface{}{
		"indexed": stats.EmbeddedCount > 0,
		"path":    path,
		"store": map[string]interface{}{
			"db_path":        stats.DBPath,
			"schema_version": stats.SchemaVersion,
			"index_size_mb":  fmt.Sprintf("%.2f", stats.IndexSizeMB),
		},
		"statistics": map[string]interface{}{
			"files_count":    stats.FilesCount,
			"chunks_count":   stats.ChunksCount,
			"embedded_count": stats.EmbeddedCount,
			"dimension":      stats.Dimension,
		},
		"health": map[string]interface{}{
			"vector_index_available": stats.VectorIndexAvailable,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// parseQuery extracts and validates the shared query parameters
func (s *Server) parseQuery(request mcp.CallToolRequest) (searcher.Query, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return searcher.Query{}, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return searcher.Query{}, err
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return searcher.Query{}, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", s.cfg.Search.DefaultLimit)
	if limit < 1 || limit > s.cfg.Search.MaxLimit {
		return searcher.Query{}, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", s.cfg.Search.MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	threshold := getFloatDefault(args, "similarity_threshold", s.cfg.Search.SimilarityThreshold)

	return searcher.Query{
		ProjectPath:         path,
		Text:                query,
		Limit:               limit,
		SimilarityThreshold: threshold,
	}, nil
}

// toMCPError maps search error categories onto MCP error codes
func (s *Server) toMCPError(message string, err error) error {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, searcher.ErrInvalidQuery):
		code = ErrorCodeInvalidParams
	case errors.Is(err, types.ErrEmbeddingFailed):
		code = ErrorCodeEmbeddingFailed
	case errors.Is(err, types.ErrStoreUnavailable):
		code = ErrorCodeProjectNotFound
	case errors.Is(err, types.ErrDimensionMismatch), errors.Is(err, types.ErrCorruptVector):
		code = ErrorCodeDataCorruption
	}

	s.logger.Error(message, zap.Int("code", code), zap.Error(err))

	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// requirePath extracts the path argument and checks it names a readable directory
func requirePath(args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	return path, nil
}

// validatePath checks if a path exists and is accessible
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	switch val := args[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
