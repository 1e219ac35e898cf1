package types

import (
	"errors"
	"strings"
)

// Chunk represents a stored unit of text and its embedding
type Chunk struct {
	// Identification
	ID      string // Opaque, assigned at ingestion
	Relpath string // Source file, relative to the project root

	// Content
	Text      string
	Embedding []float32 // Nil when the chunk has not been embedded yet
}

// Embedded reports whether the chunk carries an embedding
func (c *Chunk) Embedded() bool {
	return len(c.Embedding) > 0
}

// Dimension returns the embedding length
func (c *Chunk) Dimension() int {
	return len(c.Embedding)
}

// Validate checks the fields a store needs to persist the chunk
func (c *Chunk) Validate() error {
	if strings.TrimSpace(c.Relpath) == "" {
		return errors.New("chunk relpath cannot be empty")
	}

	if strings.HasPrefix(c.Relpath, "/") {
		return errors.New("chunk relpath must be relative to the project root")
	}

	if c.Text == "" {
		return errors.New("chunk text cannot be empty")
	}

	return nil
}

// Hit is a candidate returned by a retrieval path before threshold filtering.
// Distance is lower-is-better; similarity is derived as 1 - Distance.
type Hit struct {
	ChunkID  string
	Relpath  string
	Chunk    string
	Distance float64
}
