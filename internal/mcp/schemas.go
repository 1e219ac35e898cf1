package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/vecsearch/internal/config"
)

// queryProperties are shared by search_vectors and related_files
func queryProperties(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the project root containing the vector store",
		},
		"query": map[string]interface{}{
			"type":        "string",
			"description": "Natural language query to embed and match",
		},
		"limit": map[string]interface{}{
			"type":        "integer",
			"description": "Number of nearest candidates considered before the similarity threshold is applied",
			"default":     cfg.Search.DefaultLimit,
			"minimum":     1,
			"maximum":     cfg.Search.MaxLimit,
		},
		"similarity_threshold": map[string]interface{}{
			"type":        "number",
			"description": "Minimum similarity (inclusive) a candidate must reach",
			"default":     cfg.Search.SimilarityThreshold,
			"minimum":     -1.0,
			"maximum":     1.0,
		},
	}
}

// searchVectorsTool returns the tool definition for search_vectors
func searchVectorsTool(cfg *config.Config) mcp.Tool {
	return mcp.Tool{
		Name:        "search_vectors",
		Description: "Find stored chunks most similar to a query, best first. Fewer than limit results may be returned.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: queryProperties(cfg),
			Required:   []string{"path", "query"},
		},
	}
}

// relatedFilesTool returns the tool definition for related_files
func relatedFilesTool(cfg *config.Config) mcp.Tool {
	return mcp.Tool{
		Name:        "related_files",
		Description: "List the distinct files whose chunks match a query",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: queryProperties(cfg),
			Required:   []string{"path", "query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report vector store statistics and index health for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root",
				},
			},
			Required: []string{"path"},
		},
	}
}
