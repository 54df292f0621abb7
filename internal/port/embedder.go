package port

import "context"

// Embedder maps text strings to fixed-length vectors.
// Implementations must be deterministic for identical input text and model
// configuration, independent of call order or batch size, so re-indexing
// is reproducible. Failures wrap domain.ErrEmbeddingUnavailable.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
