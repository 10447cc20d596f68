// Package embedding holds embedder decorators; concrete embedders live in
// the hashing and openai subpackages.
package embedding

import (
	"context"
	"crypto/sha256"
	"sync"

	"chapterqa/internal/domain"
)

// Cache memoizes successful embeddings by text. Chunk text never changes
// once stored, so cached vectors stay valid; failures are never cached.
// Eviction is first-in first-out once maxEntries is reached.
type Cache struct {
	next       domain.Embedder
	maxEntries int

	mu      sync.Mutex
	entries map[[sha256.Size]byte][]float64
	order   [][sha256.Size]byte
}

func NewCache(next domain.Embedder, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	return &Cache{
		next:       next,
		maxEntries: maxEntries,
		entries:    make(map[[sha256.Size]byte][]float64),
	}
}

func (c *Cache) Name() string   { return c.next.Name() }
func (c *Cache) Dimension() int { return c.next.Dimension() }

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Embed(ctx context.Context, text string) ([]float64, error) {
	key := sha256.Sum256([]byte(text))
	c.mu.Lock()
	v, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return append([]float64(nil), v...), nil
	}

	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		if len(c.order) >= c.maxEntries {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.entries[key] = append([]float64(nil), v...)
		c.order = append(c.order, key)
	}
	return v, nil
}
