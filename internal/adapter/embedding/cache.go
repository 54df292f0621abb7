package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"lexrag/internal/port"
)

// CachedEmbedder wraps another Embedder with an in-memory LRU over
// single-text calls. Question embeddings repeat across interactive
// sessions and API retries; corpus batches do not, so multi-text batches
// bypass the cache entirely instead of churning it.
type CachedEmbedder struct {
	inner port.Embedder

	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	vector    []float32
	timestamp time.Time
}

func NewCachedEmbedder(inner port.Embedder, maxSize int, ttl time.Duration) *CachedEmbedder {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedEmbedder{
		inner:   inner,
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:16])
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) != 1 {
		return e.inner.Embed(ctx, texts)
	}

	key := cacheKey(texts[0])
	if vec, ok := e.get(key); ok {
		return [][]float32{vec}, nil
	}

	vectors, err := e.inner.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 1 {
		e.put(key, vectors[0])
	}
	return vectors, nil
}

func (e *CachedEmbedder) Dimension() int { return e.inner.Dimension() }

func (e *CachedEmbedder) ModelName() string { return e.inner.ModelName() }

// Size reports the number of cached vectors.
func (e *CachedEmbedder) Size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

func (e *CachedEmbedder) get(key string) ([]float32, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.timestamp) > e.ttl {
		delete(e.entries, key)
		e.removeFromOrder(key)
		return nil, false
	}
	e.moveToEnd(key)
	return entry.vector, true
}

func (e *CachedEmbedder) put(key string, vector []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.entries[key]; ok {
		e.entries[key] = &cacheEntry{vector: vector, timestamp: time.Now()}
		e.moveToEnd(key)
		return
	}
	if len(e.entries) >= e.maxSize {
		e.evictOldest()
	}
	e.entries[key] = &cacheEntry{vector: vector, timestamp: time.Now()}
	e.order = append(e.order, key)
}

func (e *CachedEmbedder) evictOldest() {
	if len(e.order) == 0 {
		return
	}
	oldest := e.order[0]
	e.order = e.order[1:]
	delete(e.entries, oldest)
}

func (e *CachedEmbedder) moveToEnd(key string) {
	e.removeFromOrder(key)
	e.order = append(e.order, key)
}

func (e *CachedEmbedder) removeFromOrder(key string) {
	for i, k := range e.order {
		if k == key {
			e.order = append(e.order[:i], e.order[i+1:]...)
			return
		}
	}
}
