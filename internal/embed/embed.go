// Package embed memoizes embedding vectors for normalized text, so repeated
// runs over overlapping listings never pay for the same embedding twice.
package embed

import (
	"context"
	"math"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Provider computes embedding vectors. pkg/jina satisfies this.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Store is the persistent key-value backing for the cache. Keys are
// normalized text; the backing format is swappable without touching
// scoring logic.
type Store interface {
	Get(key string) ([]float32, bool, error)
	Put(key string, vec []float32) error
	Flush() error
}

// Cache is a write-through embedding cache: an in-memory map in front of a
// persistent Store, filled on demand from the Provider. Safe for concurrent
// use.
type Cache struct {
	provider Provider
	store    Store
	dim      int

	mu  sync.RWMutex
	mem map[string][]float32
}

// NewCache creates an embedding cache. dim is the vector dimension used for
// the zero vector returned for empty input.
func NewCache(provider Provider, store Store, dim int) *Cache {
	return &Cache{
		provider: provider,
		store:    store,
		dim:      dim,
		mem:      make(map[string][]float32),
	}
}

// Model returns the provider's model identifier.
func (c *Cache) Model() string { return c.provider.Model() }

// lookup checks memory, then the store. A store read failure degrades to a
// cache miss with a warning rather than aborting the run.
func (c *Cache) lookup(key string) ([]float32, bool) {
	c.mu.RLock()
	vec, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return vec, true
	}

	vec, ok, err := c.store.Get(key)
	if err != nil {
		zap.L().Warn("embed: cache read failed, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	c.mem[key] = vec
	c.mu.Unlock()
	return vec, true
}

func (c *Cache) insert(key string, vec []float32) {
	c.mu.Lock()
	c.mem[key] = vec
	c.mu.Unlock()

	if err := c.store.Put(key, vec); err != nil {
		zap.L().Warn("embed: cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Embed returns the vector for one normalized text. Empty text maps to the
// zero vector without invoking the provider.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per input text, computing only the uncached
// subset in a single provider call.
func (c *Cache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if text == "" {
			out[i] = make([]float32, c.dim)
			continue
		}
		if vec, ok := c.lookup(text); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	zap.L().Info("embed: computing embeddings", zap.Int("texts", len(missing)))
	vecs, err := c.provider.Embed(ctx, missing)
	if err != nil {
		return nil, eris.Wrap(err, "embed: provider batch")
	}
	if len(vecs) != len(missing) {
		return nil, eris.Errorf("embed: provider returned %d vectors for %d texts", len(vecs), len(missing))
	}

	for k, i := range missingIdx {
		out[i] = vecs[k]
		c.insert(missing[k], vecs[k])
	}
	return out, nil
}

// Similarity returns the semantic similarity of two normalized texts on a
// [0, 100] scale: cosine similarity rescaled from [-1, 1].
func (c *Cache) Similarity(ctx context.Context, a, b string) (float64, error) {
	vecs, err := c.EmbedBatch(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	return (Cosine(vecs[0], vecs[1]) + 1) / 2 * 100, nil
}

// Flush persists anything the backing store has buffered.
func (c *Cache) Flush() error {
	return c.store.Flush()
}

// Cosine returns the cosine similarity of two vectors, or 0 when either has
// zero magnitude or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
