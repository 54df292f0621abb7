package port

import (
	"context"

	"lexrag/internal/domain"
)

// IndexCatalog manages named vector indexes in a persistent backend.
// Indexing and querying are deliberately separate: building an index is
// expensive and run-once, querying is cheap and run-per-request.
type IndexCatalog interface {
	// Create creates a new index. Fails with domain.ErrIndexExists when a
	// populated index of that name already exists; an existing but empty
	// index is returned as-is so a failed build can be re-attempted.
	Create(ctx context.Context, name string, metadata map[string]string) (VectorIndex, error)

	// Get opens an existing index. Fails with domain.ErrIndexNotFound.
	Get(ctx context.Context, name string) (VectorIndex, error)

	// Drop removes an index and all its documents. Missing names are a no-op.
	Drop(ctx context.Context, name string) error

	// Close releases the underlying storage.
	Close() error
}

// VectorIndex is one named collection of embedded documents.
type VectorIndex interface {
	// Name returns the index name.
	Name() string

	// Add embeds and persists documents. Embedding happens internally via
	// the catalog's Embedder. Document IDs must be unique within the index.
	Add(ctx context.Context, docs []domain.IndexedDocument) error

	// Query returns up to k nearest documents for text, restricted to
	// documents whose metadata matches every key/value pair in filter
	// (exact match; nil or empty filter means no restriction). Results are
	// ordered by ascending distance; ties break by insertion order.
	// Fails with domain.ErrInvalidQuery when text is empty or k < 1.
	Query(ctx context.Context, text string, k int, filter map[string]string) ([]domain.RetrievedResult, error)

	// Count returns the number of documents in the index.
	Count(ctx context.Context) (int, error)
}
