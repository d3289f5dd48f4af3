package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrEmptyText           = errors.New("text cannot be empty")
	ErrProviderFailed      = errors.New("embedding provider failed")
	ErrEmptyEmbedding      = errors.New("provider returned empty embedding")
	ErrNoProviderEnabled   = errors.New("no embedding provider configured")
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
)

// Embedder generates embedding vectors for text.
type Embedder interface {
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimension returns the vector length, or 0 before the first call.
	Dimension() int

	// Provider returns the provider name.
	Provider() string

	// Model returns the model name.
	Model() string

	// Close releases resources held by the embedder.
	Close() error
}

// Cache is an in-memory LRU of embeddings keyed by content hash.
type Cache struct {
	cache *lru.Cache[string, []float64]
}

// NewCache creates a cache holding up to maxLen embeddings.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, []float64](maxLen)
	if err != nil {
		cache, _ = lru.New[string, []float64](10000)
	}
	return &Cache{cache: cache}
}

// Get returns a copy of the cached vector so callers cannot mutate the
// cached value.
func (c *Cache) Get(hash string) ([]float64, bool) {
	vec, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a vector; LRU eviction applies at capacity.
func (c *Cache) Set(hash string, vec []float64) {
	c.cache.Add(hash, vec)
}

// Size returns the current cache population.
func (c *Cache) Size() int {
	return c.cache.Len()
}

// ComputeHash returns the SHA-256 hash of text, used as the cache key.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
