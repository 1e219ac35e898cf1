package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/vecsearch/pkg/types"
)

// memoryDSN opens a private in-memory database
const memoryDSN = ":memory:"

// SQLiteStore implements Store and Writer over a single SQLite file
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

var (
	_ Store  = (*SQLiteStore)(nil)
	_ Writer = (*SQLiteStore)(nil)
)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, buildDSN(dbPath))
	if err != nil {
		return nil, err
	}

	if dbPath == memoryDSN {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		// WAL allows concurrent readers alongside one writer
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// NewSQLiteStore opens (or creates) the store at dbPath and applies migrations.
// Use ":memory:" for a throwaway store.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", types.ErrStoreUnavailable, dbPath, err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply migrations: %w", types.ErrStoreUnavailable, err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// ProjectDBPath returns the database file location for a project
func ProjectDBPath(projectPath string, opts Options) string {
	if opts.DirName == "" {
		opts.DirName = DefaultDirName
	}
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	return filepath.Join(projectPath, opts.DirName, opts.FileName)
}

// OpenProject opens or creates the store for projectPath. Opening the same
// project twice is safe; migrations are idempotent.
func OpenProject(ctx context.Context, projectPath string, opts Options) (*SQLiteStore, error) {
	if projectPath == "" {
		return nil, fmt.Errorf("%w: project path is required", types.ErrStoreUnavailable)
	}

	info, err := os.Stat(projectPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", types.ErrStoreUnavailable, projectPath)
	}

	dbPath := ProjectDBPath(projectPath, opts)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: create store directory: %w", types.ErrStoreUnavailable, err)
	}

	return NewSQLiteStore(ctx, dbPath)
}

// Path returns the database path the store was opened with
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// QueryIndexed runs a KNN query against the native vector index
func (s *SQLiteStore) QueryIndexed(ctx context.Context, queryVector []float32, limit int) ([]types.Hit, error) {
	return queryIndexed(ctx, s.db, queryVector, limit)
}

// ScanAll returns every embedded chunk in the store
func (s *SQLiteStore) ScanAll(ctx context.Context) ([]types.Chunk, error) {
	return scanAll(ctx, s.db)
}

// Stats reports corpus statistics for the store
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{DBPath: s.dbPath}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(embedding),
			COUNT(DISTINCT relpath)
		FROM vector_chunks
	`).Scan(&stats.ChunksCount, &stats.EmbeddedCount, &stats.FilesCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	if stats.EmbeddedCount > 0 {
		var blobLen int
		err = s.db.QueryRowContext(ctx,
			"SELECT length(embedding) FROM vector_chunks WHERE embedding IS NOT NULL LIMIT 1",
		).Scan(&blobLen)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedding dimension: %w", err)
		}
		stats.Dimension = blobLen / float32Size
	}

	version, err := schemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	stats.SchemaVersion = version

	// Calculate database size
	var pageCount, pageSize int
	err = s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	stats.VectorIndexAvailable, err = probeVectorIndex(ctx, s.db)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// Write operations used by ingestion collaborators

// PutChunk inserts or replaces a chunk. An empty ID is assigned a UUID.
// When the native index exists the chunk's vector row is kept in sync.
func (s *SQLiteStore) PutChunk(ctx context.Context, chunk *types.Chunk) error {
	if err := chunk.Validate(); err != nil {
		return err
	}
	if chunk.ID == "" {
		chunk.ID = uuid.NewString()
	}

	var blob []byte
	if chunk.Embedded() {
		blob = serializeVector(chunk.Embedding)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vector_chunks (id, relpath, chunk, embedding, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				relpath = excluded.relpath,
				chunk = excluded.chunk,
				embedding = excluded.embedding,
				updated_at = excluded.updated_at
		`, chunk.ID, chunk.Relpath, chunk.Text, blob, now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert chunk: %w", err)
		}

		indexed, err := hasVectorIndexTable(ctx, tx)
		if err != nil || !indexed {
			return err
		}

		var rowID int64
		if err := tx.QueryRowContext(ctx, "SELECT rowid FROM vector_chunks WHERE id = ?", chunk.ID).Scan(&rowID); err != nil {
			return fmt.Errorf("failed to resolve chunk rowid: %w", err)
		}
		return syncVectorRow(ctx, tx, rowID, blob)
	})
}

// DeleteChunksByRelpath removes every chunk extracted from relpath
func (s *SQLiteStore) DeleteChunksByRelpath(ctx context.Context, relpath string) (int, error) {
	var deleted int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		indexed, err := hasVectorIndexTable(ctx, tx)
		if err != nil {
			return err
		}

		if indexed {
			rowIDs, err := rowIDsByRelpath(ctx, tx, relpath)
			if err != nil {
				return err
			}
			for _, rowID := range rowIDs {
				if err := syncVectorRow(ctx, tx, rowID, nil); err != nil {
					return err
				}
			}
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM vector_chunks WHERE relpath = ?", relpath)
		if err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		deleted = int(n)
		return nil
	})
	return deleted, err
}

// CreateVectorIndex builds the native vector index for the given dimension
// and backfills it from existing embeddings. Without the vector extension it
// returns an error wrapping types.ErrIndexUnsupported.
func (s *SQLiteStore) CreateVectorIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", types.ErrDimensionMismatch)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		ddl := fmt.Sprintf(
			"CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d] distance_metric=cosine)",
			vectorIndexTable, dimension)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return classifyIndexError("create vector index", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM "+vectorIndexTable); err != nil {
			return classifyIndexError("reset vector index", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO `+vectorIndexTable+` (rowid, embedding)
			SELECT rowid, embedding FROM vector_chunks
			WHERE embedding IS NOT NULL AND length(embedding) = ?
		`, dimension*float32Size)
		if err != nil {
			return classifyIndexError("backfill vector index", err)
		}
		return nil
	})
}

// withTx runs fn inside a transaction, rolling back on error
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// rowIDsByRelpath lists the rowids of chunks belonging to relpath
func rowIDsByRelpath(ctx context.Context, tx *sql.Tx, relpath string) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, "SELECT rowid FROM vector_chunks WHERE relpath = ?", relpath)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunk rowids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
