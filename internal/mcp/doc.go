// Package mcp exposes vector search over the Model Context Protocol.
//
// The server registers three tools:
//   - search_vectors: ranked chunks most similar to a query
//   - related_files: distinct relpaths of the matching chunks
//   - get_status: store statistics and native index health
//
// MCP is JSON-RPC 2.0 over stdio, so stdout is reserved for protocol
// frames and all logging goes to stderr through zap.
//
// # Tool: search_vectors
//
//	Request:
//	{
//	  "name": "search_vectors",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "query": "how are retries configured",
//	    "limit": 10,
//	    "similarity_threshold": 0.7
//	  }
//	}
//
//	Response:
//	{
//	  "query": "how are retries configured",
//	  "retrieval": "indexed",
//	  "candidates": 10,
//	  "count": 2,
//	  "results": [
//	    {"chunk_id": "...", "relpath": "docs/retry.md", "chunk": "...", "similarity": 0.91}
//	  ],
//	  "duration_ms": 4
//	}
//
// limit bounds the candidate pool before the threshold is applied, so a
// response may hold fewer than limit results. retrieval reports whether
// the native vector index or the full scan answered the query.
//
// # Error Handling
//
// Handlers return *MCPError values:
//   - -32602: invalid params
//   - -32603: internal error
//   - -32001: project store cannot be opened
//   - -32002: embedding provider failed
//   - -32003: stored vectors are inconsistent (dimension mismatch)
//   - -32004: empty query
package mcp
