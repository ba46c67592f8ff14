package embedding

import (
	"container/list"
	"context"
	"fmt"
	"sync"
)

// EmbeddingCache is an LRU cache for embeddings keyed by text.
type EmbeddingCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewEmbeddingCache creates a new cache with the given capacity.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached embedding for key if present.
func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores the embedding for key, evicting the oldest entry if at capacity.
func (c *EmbeddingCache) Set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	entry := &cacheEntry{key: key, value: value}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached entries.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CachedModel wraps a Model with an LRU cache. Cache misses from one Embed
// call are sent to the inner model together in a single call.
type CachedModel struct {
	inner Model
	cache *EmbeddingCache
}

// NewCachedModel wraps inner with a cache holding up to capacity vectors.
func NewCachedModel(inner Model, capacity int) *CachedModel {
	return &CachedModel{inner: inner, cache: NewEmbeddingCache(capacity)}
}

// Embed returns cached vectors where available and embeds the rest.
func (m *CachedModel) Embed(ctx context.Context, texts []string, opts EmbedOptions) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if v, ok := m.cache.Get(cacheKey(text, opts)); ok {
			out[i] = cloneVector(v)
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := m.inner.Embed(ctx, missTexts, opts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("model %s returned %d vectors for %d inputs", m.inner.Name(), len(vecs), len(missTexts))
	}
	for j, v := range vecs {
		m.cache.Set(cacheKey(missTexts[j], opts), cloneVector(v))
		out[missIdx[j]] = v
	}
	return out, nil
}

// Dimensions returns the inner model dimension.
func (m *CachedModel) Dimensions() int { return m.inner.Dimensions() }

// Name returns the inner model name.
func (m *CachedModel) Name() string { return m.inner.Name() }

// Close closes the inner model.
func (m *CachedModel) Close() error { return m.inner.Close() }

func cacheKey(text string, opts EmbedOptions) string {
	norm := "0"
	if opts.Normalize {
		norm = "1"
	}
	return string(opts.Pooling) + "|" + norm + "|" + text
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
