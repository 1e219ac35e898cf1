package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrProviderFailed  = errors.New("embedding provider failed")
	ErrUnknownProvider = errors.New("unknown embedding provider")
	ErrMissingAPIKey   = errors.New("embedding provider API key not set")
)

// DefaultCacheSize is the number of embeddings cached when no size is given
const DefaultCacheSize = 10000

// Embedding is one text's vector and the model that produced it
type Embedding struct {
	Vector   []float32
	Provider string
	Model    string
}

// Embedder turns text into vectors. Implementations must be safe for
// concurrent use.
type Embedder interface {
	// Embed returns the vector for a single non-empty text
	Embed(ctx context.Context, text string) (*Embedding, error)

	// Dimension is the configured vector length, 0 when the model decides
	Dimension() int

	Provider() string
	Model() string
	Close() error
}

// Cache is a concurrency-safe LRU of embeddings. Vectors are copied on the
// way in and out so neither side can alter the other's slice.
type Cache struct {
	entries *lru.Cache[string, *Embedding]
}

// NewCache creates a cache holding up to size embeddings (DefaultCacheSize if size <= 0)
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, *Embedding](size)
	if err != nil {
		entries, _ = lru.New[string, *Embedding](DefaultCacheSize)
	}
	return &Cache{entries: entries}
}

func (c *Cache) Get(key string) (*Embedding, bool) {
	emb, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return emb.clone(), true
}

func (c *Cache) Add(key string, emb *Embedding) {
	c.entries.Add(key, emb.clone())
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

func (e *Embedding) clone() *Embedding {
	out := *e
	out.Vector = append([]float32(nil), e.Vector...)
	return &out
}

// cacheKey scopes text to model so a model switch never reuses stale vectors
func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "|" + text))
	return hex.EncodeToString(sum[:])
}

// validateTexts rejects empty batches and empty strings
func validateTexts(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}
