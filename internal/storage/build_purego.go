//go:build !sqlite_vec || purego

package storage

// This file is compiled when building without the sqlite_vec tag or with the
// purego tag. It uses a pure Go SQLite implementation without the sqlite-vec
// extension, so every search takes the full-scan fallback path.
//
// Build command:
//   CGO_ENABLED=0 go build -tags "purego" ./...
//
// The pure Go implementation provides:
//   - No C compiler required
//   - Cross-platform compilation
//   - Linear-cost fallback scan instead of a native index
//   - Suitable for development and smaller projects
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if vector extension is compiled in
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)

// buildDSN appends connection pragmas understood by modernc.org/sqlite
func buildDSN(dbPath string) string {
	if dbPath == memoryDSN {
		return dbPath
	}
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}
