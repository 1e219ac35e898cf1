//go:build sqlite_vec && !purego

package storage

// This file is compiled when building with CGO and the sqlite_vec tag.
// It registers the sqlite-vec extension so the vec0 virtual table backing
// the native vector index is available on every connection.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_vec" ./...
//
// The sqlite-vec extension provides:
//   - vec0 virtual tables with KNN queries (cosine, L2)
//   - Fast C implementation for vector distance
//   - Recommended for production-scale projects
//
// Driver used: github.com/mattn/go-sqlite3

import (
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// VectorExtensionAvailable indicates if vector extension is compiled in
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)

func init() {
	sqlite_vec.Auto()
}

// buildDSN appends connection parameters understood by go-sqlite3
func buildDSN(dbPath string) string {
	if dbPath == memoryDSN {
		return dbPath
	}
	return "file:" + dbPath + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
}
