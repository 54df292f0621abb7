package index

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"go.etcd.io/bbolt"
	"lexrag/internal/domain"
	"lexrag/internal/port"
)

var bucketCollections = []byte("collections")

// BoltCatalog implements IndexCatalog on a single BoltDB file. Each index
// is one bucket of documents plus an in-memory vector cache; search is
// brute-force cosine, which is fine at statute-corpus scale.
type BoltCatalog struct {
	db       *bbolt.DB
	embedder port.Embedder

	mu   sync.Mutex
	open map[string]*boltIndex
}

type collectionMeta struct {
	Metadata  map[string]string `json:"metadata,omitempty"`
	Dimension int               `json:"dimension"`
}

type storedDoc struct {
	Seq      uint64            `json:"seq"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Vector   []float32         `json:"vector"`
}

// NewBoltCatalog opens (or creates) the catalog database at path.
func NewBoltCatalog(path string, embedder port.Embedder) (*BoltCatalog, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCollections)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create collections bucket: %w", err)
	}

	return &BoltCatalog{
		db:       db,
		embedder: embedder,
		open:     make(map[string]*boltIndex),
	}, nil
}

func docsBucket(name string) []byte {
	return []byte("docs:" + name)
}

// Create creates the named index. A populated index of the same name fails
// with ErrIndexExists; an existing empty one (e.g. left by an aborted
// build) is returned so the build can be re-attempted.
func (c *BoltCatalog) Create(ctx context.Context, name string, metadata map[string]string) (port.VectorIndex, error) {
	if name == "" {
		return nil, fmt.Errorf("index name must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var populated bool
	var exists bool
	err := c.db.Update(func(tx *bbolt.Tx) error {
		cols := tx.Bucket(bucketCollections)
		if cols.Get([]byte(name)) != nil {
			exists = true
			if docs := tx.Bucket(docsBucket(name)); docs != nil && docs.Stats().KeyN > 0 {
				populated = true
				return nil
			}
			// Empty leftover: fall through and refresh the metadata, the
			// embedder may have changed since the aborted build.
		}

		meta := collectionMeta{
			Metadata:  metadata,
			Dimension: c.embedder.Dimension(),
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		if err := cols.Put([]byte(name), data); err != nil {
			return err
		}
		_, err = tx.CreateBucketIfNotExists(docsBucket(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index %s: %w", name, err)
	}
	if populated {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexExists, name)
	}
	if exists {
		return c.openLocked(name)
	}

	idx := &boltIndex{name: name, catalog: c, docs: make(map[string]docEntry)}
	c.open[name] = idx
	return idx, nil
}

// Get opens an existing index, loading its vectors into memory. An index
// built with a different embedding dimension is rejected rather than
// searched with incompatible query vectors.
func (c *BoltCatalog) Get(ctx context.Context, name string) (port.VectorIndex, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var raw []byte
	err := c.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketCollections).Get([]byte(name)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, name)
	}

	var meta collectionMeta
	if err := json.Unmarshal(raw, &meta); err == nil && meta.Dimension != 0 && meta.Dimension != c.embedder.Dimension() {
		return nil, fmt.Errorf("index %s holds %d-dimensional vectors but embedder %s produces %d: drop and re-index",
			name, meta.Dimension, c.embedder.ModelName(), c.embedder.Dimension())
	}

	return c.openLocked(name)
}

// openLocked returns the shared handle for name, loading the document
// cache on first open. Callers hold c.mu.
func (c *BoltCatalog) openLocked(name string) (*boltIndex, error) {
	if idx, ok := c.open[name]; ok {
		return idx, nil
	}

	idx := &boltIndex{name: name, catalog: c, docs: make(map[string]docEntry)}
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(docsBucket(name))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var stored storedDoc
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // skip corrupted entries
			}
			idx.docs[string(k)] = docEntry{
				seq:      stored.Seq,
				text:     stored.Text,
				metadata: stored.Metadata,
				vector:   stored.Vector,
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load index %s: %w", name, err)
	}

	c.open[name] = idx
	return idx, nil
}

// Drop removes the index and its documents. Unknown names are a no-op.
func (c *BoltCatalog) Drop(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.open, name)
	return c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketCollections).Delete([]byte(name)); err != nil {
			return err
		}
		if tx.Bucket(docsBucket(name)) != nil {
			return tx.DeleteBucket(docsBucket(name))
		}
		return nil
	})
}

func (c *BoltCatalog) Close() error {
	return c.db.Close()
}

type boltIndex struct {
	name    string
	catalog *BoltCatalog

	mu   sync.RWMutex
	docs map[string]docEntry
}

type docEntry struct {
	seq      uint64
	text     string
	metadata map[string]string
	vector   []float32
}

func (idx *boltIndex) Name() string {
	return idx.name
}

// Add embeds the documents and persists them. Re-adding an existing ID
// overwrites its text and metadata but keeps the original insertion
// sequence, so tie-break order never shifts under rebuilds.
func (idx *boltIndex) Add(ctx context.Context, docs []domain.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("document %d has empty id", i)
		}
		texts[i] = d.Text
	}

	vectors, err := idx.catalog.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed %d documents: %w", len(docs), err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("%w: got %d vectors for %d documents", domain.ErrEmbeddingUnavailable, len(vectors), len(docs))
	}

	dimension := idx.catalog.embedder.Dimension()
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("vector dimension mismatch for %s: expected %d, got %d", docs[i].ID, dimension, len(v))
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	return idx.catalog.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(docsBucket(idx.name))
		if b == nil {
			return fmt.Errorf("%w: %s", domain.ErrIndexNotFound, idx.name)
		}

		for i, d := range docs {
			seq := uint64(0)
			if existing, ok := idx.docs[d.ID]; ok {
				seq = existing.seq
			} else {
				next, err := b.NextSequence()
				if err != nil {
					return err
				}
				seq = next
			}

			stored := storedDoc{
				Seq:      seq,
				Text:     d.Text,
				Metadata: d.Metadata,
				Vector:   vectors[i],
			}
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(d.ID), data); err != nil {
				return err
			}

			idx.docs[d.ID] = docEntry{
				seq:      seq,
				text:     d.Text,
				metadata: d.Metadata,
				vector:   vectors[i],
			}
		}

		return nil
	})
}

// Query embeds the text and returns the k nearest documents passing the
// filter, ordered by ascending cosine distance with insertion-order
// tie-break.
func (idx *boltIndex) Query(ctx context.Context, text string, k int, filter map[string]string) ([]domain.RetrievedResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty query text", domain.ErrInvalidQuery)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidQuery, k)
	}

	vectors, err := idx.catalog.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for query", domain.ErrEmbeddingUnavailable, len(vectors))
	}
	query := vectors[0]

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type scored struct {
		id       string
		distance float64
		seq      uint64
		entry    docEntry
	}

	scores := make([]scored, 0, len(idx.docs))
	for id, entry := range idx.docs {
		if !matchesFilter(entry.metadata, filter) {
			continue
		}
		scores = append(scores, scored{
			id:       id,
			distance: 1 - cosineSimilarity(query, entry.vector),
			seq:      entry.seq,
			entry:    entry,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].distance != scores[j].distance {
			return scores[i].distance < scores[j].distance
		}
		return scores[i].seq < scores[j].seq
	})

	if k > len(scores) {
		k = len(scores)
	}

	results := make([]domain.RetrievedResult, 0, k)
	for _, s := range scores[:k] {
		distance := s.distance
		results = append(results, domain.RetrievedResult{
			ID:       s.id,
			Content:  s.entry.text,
			Metadata: s.entry.metadata,
			Distance: &distance,
		})
	}

	return results, nil
}

func (idx *boltIndex) Count(ctx context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs), nil
}

// matchesFilter reports whether metadata satisfies every key/value pair in
// filter. A nil or empty filter matches everything.
func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
