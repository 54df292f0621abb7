package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"lexrag/internal/domain"
	"lexrag/internal/port"
)

// PgCatalog implements IndexCatalog on PostgreSQL with the pgvector
// extension. All indexes share one documents table; the bigserial seq
// column doubles as the insertion-order tie-break.
type PgCatalog struct {
	pool     *pgxpool.Pool
	embedder port.Embedder
}

// NewPgCatalog connects to PostgreSQL and sets up the schema. The
// embedding column dimension is fixed at setup time from the embedder,
// so switching embedding models requires a fresh database.
func NewPgCatalog(ctx context.Context, dsn string, embedder port.Embedder) (*PgCatalog, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c := &PgCatalog{pool: pool, embedder: embedder}
	if err := c.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

func (c *PgCatalog) initialize(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	if _, err := c.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			metadata JSONB,
			dimension INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create collections table: %w", err)
	}

	if _, err := c.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS documents (
			seq BIGSERIAL PRIMARY KEY,
			collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
			doc_id TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d) NOT NULL,
			UNIQUE (collection, doc_id)
		)
	`, c.embedder.Dimension())); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	if _, err := c.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS documents_embedding_idx ON documents
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
	`); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	if _, err := c.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection)
	`); err != nil {
		return fmt.Errorf("failed to create collection index: %w", err)
	}

	return nil
}

// Create creates the named index. A populated index of the same name
// fails with ErrIndexExists; an existing empty one is returned so an
// aborted build can be re-attempted.
func (c *PgCatalog) Create(ctx context.Context, name string, metadata map[string]string) (port.VectorIndex, error) {
	if name == "" {
		return nil, fmt.Errorf("index name must not be empty")
	}

	var exists bool
	err := c.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM collections WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check index %s: %w", name, err)
	}

	if exists {
		var count int
		err := c.pool.QueryRow(ctx,
			`SELECT count(*) FROM documents WHERE collection = $1`, name).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("failed to count documents in %s: %w", name, err)
		}
		if count > 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexExists, name)
		}
		return &pgIndex{name: name, catalog: c}, nil
	}

	_, err = c.pool.Exec(ctx, `
		INSERT INTO collections (name, metadata, dimension)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`, name, metadata, c.embedder.Dimension())
	if err != nil {
		return nil, fmt.Errorf("failed to create index %s: %w", name, err)
	}

	return &pgIndex{name: name, catalog: c}, nil
}

// Get opens an existing index or fails with ErrIndexNotFound.
func (c *PgCatalog) Get(ctx context.Context, name string) (port.VectorIndex, error) {
	var exists bool
	err := c.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM collections WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check index %s: %w", name, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, name)
	}
	return &pgIndex{name: name, catalog: c}, nil
}

// Drop removes the index and its documents. Unknown names are a no-op.
func (c *PgCatalog) Drop(ctx context.Context, name string) error {
	_, err := c.pool.Exec(ctx, `DELETE FROM collections WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to drop index %s: %w", name, err)
	}
	return nil
}

func (c *PgCatalog) Close() error {
	c.pool.Close()
	return nil
}

type pgIndex struct {
	name    string
	catalog *PgCatalog
}

func (idx *pgIndex) Name() string {
	return idx.name
}

// Add embeds the documents and upserts them. Re-adding an existing ID
// overwrites its content and metadata but keeps the original seq, so
// tie-break order never shifts under rebuilds.
func (idx *pgIndex) Add(ctx context.Context, docs []domain.IndexedDocument) error {
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

	tx, err := idx.catalog.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, d := range docs {
		_, err := tx.Exec(ctx, `
			INSERT INTO documents (collection, doc_id, content, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5::vector)
			ON CONFLICT (collection, doc_id) DO UPDATE
			SET content = EXCLUDED.content,
			    metadata = EXCLUDED.metadata,
			    embedding = EXCLUDED.embedding
		`, idx.name, d.ID, d.Text, d.Metadata, formatVector(vectors[i]))
		if err != nil {
			return fmt.Errorf("failed to store document %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit documents: %w", err)
	}
	return nil
}

// Query embeds the text and returns the k nearest documents passing the
// filter, ordered by ascending cosine distance with seq tie-break.
func (idx *pgIndex) Query(ctx context.Context, text string, k int, filter map[string]string) ([]domain.RetrievedResult, error) {
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

	query, args, err := buildSearchQuery(idx.name, formatVector(vectors[0]), k, filter)
	if err != nil {
		return nil, err
	}

	rows, err := idx.catalog.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query index %s: %w", idx.name, err)
	}
	defer rows.Close()

	var results []domain.RetrievedResult
	for rows.Next() {
		var r domain.RetrievedResult
		var distance float64
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Distance = &distance
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

func (idx *pgIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := idx.catalog.pool.QueryRow(ctx,
		`SELECT count(*) FROM documents WHERE collection = $1`, idx.name).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents in %s: %w", idx.name, err)
	}
	return count, nil
}

// buildSearchQuery assembles the similarity search statement. The
// metadata filter becomes a jsonb containment test so every key/value
// pair must match.
func buildSearchQuery(collection, vector string, k int, filter map[string]string) (string, []interface{}, error) {
	args := []interface{}{vector, collection}
	where := "collection = $2"

	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode filter: %w", err)
		}
		args = append(args, string(filterJSON))
		where += fmt.Sprintf(" AND metadata @> $%d::jsonb", len(args))
	}

	args = append(args, k)
	query := fmt.Sprintf(`
		SELECT doc_id, content, metadata, embedding <=> $1::vector AS distance
		FROM documents
		WHERE %s
		ORDER BY embedding <=> $1::vector, seq
		LIMIT $%d`, where, len(args))

	return query, args, nil
}

// formatVector formats an embedding as a pgvector literal.
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
