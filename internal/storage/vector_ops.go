package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/dshills/vecsearch/pkg/types"
)

// vectorIndexTable is the vec0 virtual table mirroring vector_chunks.embedding
const vectorIndexTable = "vec_chunks"

// float32Size is the encoded width of one vector element
const float32Size = 4

// vec0MaxK is the largest k a vec0 KNN query accepts
const vec0MaxK = 4096

// scanCheckInterval is how many rows ScanAll reads between context checks
const scanCheckInterval = 256

// ErrInvalidVectorBlob is returned when a stored blob cannot hold whole float32 values
var ErrInvalidVectorBlob = fmt.Errorf("%w: vector blob length is not a multiple of %d", types.ErrDimensionMismatch, float32Size)

// Driver messages that mean the native index cannot serve this store
var indexUnsupportedMarkers = []string{
	"no such table: " + vectorIndexTable,
	"no such module: vec0",
	"no such function: vec_",
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queryIndexed runs a k-nearest-neighbour query through vec0
func queryIndexed(ctx context.Context, q querier, queryVector []float32, limit int) ([]types.Hit, error) {
	if limit <= 0 {
		return []types.Hit{}, nil
	}
	if limit > vec0MaxK {
		return nil, fmt.Errorf("%w: k %d exceeds vec0 maximum %d", types.ErrIndexUnsupported, limit, vec0MaxK)
	}

	// vec0 computes cosine distance; the join resolves rowids to chunks
	query := `
		WITH knn AS (
			SELECT rowid, distance
			FROM ` + vectorIndexTable + `
			WHERE embedding MATCH ? AND k = ?
		)
		SELECT vc.id, vc.relpath, vc.chunk, knn.distance
		FROM knn
		INNER JOIN vector_chunks vc ON vc.rowid = knn.rowid
		ORDER BY knn.distance
	`

	rows, err := q.QueryContext(ctx, query, serializeVector(queryVector), limit)
	if err != nil {
		return nil, classifyIndexError("execute vector search", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]types.Hit, 0, limit)
	for rows.Next() {
		var hit types.Hit
		if err := rows.Scan(&hit.ChunkID, &hit.Relpath, &hit.Chunk, &hit.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, classifyIndexError("read vector search results", err)
	}

	return hits, nil
}

// scanAll loads every embedded chunk for Go-side scoring
func scanAll(ctx context.Context, q querier) ([]types.Chunk, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, relpath, chunk, embedding
		FROM vector_chunks
		WHERE embedding IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []types.Chunk
	for n := 0; rows.Next(); n++ {
		if n%scanCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		var (
			chunk types.Chunk
			blob  []byte
		)
		if err := rows.Scan(&chunk.ID, &chunk.Relpath, &chunk.Text, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}

		chunk.Embedding, err = deserializeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", chunk.ID, err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return chunks, nil
}

// hasVectorIndexTable reports whether writes must be mirrored into vec0.
// Builds without the extension never touch the virtual table.
func hasVectorIndexTable(ctx context.Context, q querier) (bool, error) {
	if !VectorExtensionAvailable {
		return false, nil
	}

	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		vectorIndexTable,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check vector index: %w", err)
	}
	return count > 0, nil
}

// probeVectorIndex reports whether QueryIndexed can be served by this store
func probeVectorIndex(ctx context.Context, q querier) (bool, error) {
	present, err := hasVectorIndexTable(ctx, q)
	if err != nil || !present {
		return false, err
	}

	var rowID int64
	err = q.QueryRowContext(ctx, "SELECT rowid FROM "+vectorIndexTable+" LIMIT 1").Scan(&rowID)
	switch {
	case err == nil, err == sql.ErrNoRows:
		return true, nil
	case isIndexUnsupported(err):
		return false, nil
	default:
		return false, fmt.Errorf("failed to probe vector index: %w", err)
	}
}

// syncVectorRow replaces the vec0 row for rowID. A nil blob only deletes.
func syncVectorRow(ctx context.Context, q querier, rowID int64, blob []byte) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM "+vectorIndexTable+" WHERE rowid = ?", rowID); err != nil {
		return classifyIndexError("delete vector row", err)
	}
	if blob == nil {
		return nil
	}
	_, err := q.ExecContext(ctx, "INSERT INTO "+vectorIndexTable+" (rowid, embedding) VALUES (?, ?)", rowID, blob)
	if err != nil {
		return classifyIndexError("insert vector row", err)
	}
	return nil
}

// classifyIndexError maps driver messages from the vector index onto the
// shared error categories. Anything unrecognised is wrapped as-is.
func classifyIndexError(op string, err error) error {
	if isIndexUnsupported(err) {
		return fmt.Errorf("%w: %s: %w", types.ErrIndexUnsupported, op, err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "dimension mismatch") {
		return fmt.Errorf("%w: %s: %w", types.ErrDimensionMismatch, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isIndexUnsupported(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range indexUnsupportedMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*float32Size)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*float32Size:], math.Float32bits(v))
	}
	return buf
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) ([]float32, error) {
	if len(blob)%float32Size != 0 {
		return nil, fmt.Errorf("%w (got %d bytes)", ErrInvalidVectorBlob, len(blob))
	}
	vector := make([]float32, len(blob)/float32Size)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*float32Size:]))
	}
	return vector, nil
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) ([]float32, error) {
	return deserializeVector(blob)
}
