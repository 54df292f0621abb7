package domain

import "errors"

var (
	// ErrCorpusNotFound is returned when a corpus path does not resolve to a file.
	ErrCorpusNotFound = errors.New("corpus file not found")

	// ErrCorpusMalformed is returned when a corpus file cannot be parsed into
	// the expected shape: wrong nesting, missing required fields, or duplicate
	// article numbers / term keys.
	ErrCorpusMalformed = errors.New("corpus malformed")

	// ErrIndexExists is returned by create when a populated index of that
	// name already exists. The indexer uses it as the skip-rebuild signal.
	ErrIndexExists = errors.New("index already exists")

	// ErrIndexNotFound is returned by get for an unknown index name.
	ErrIndexNotFound = errors.New("index not found")

	// ErrInvalidQuery is returned for an empty query text or a non-positive
	// result count.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEmbeddingUnavailable is returned when the embedding provider fails.
	// Fatal for an indexing run; fatal for the single query that hit it.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
)
