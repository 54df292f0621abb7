package usecase

import (
	"context"
	"fmt"

	"lexrag/internal/adapter/corpus"
	"lexrag/internal/domain"
	"lexrag/internal/port"
)

// RAGOptions configures the retrieval facade.
type RAGOptions struct {
	StatutePath string
	TermsPath   string
	// TermsGlobs, when set, overrides TermsPath with glob patterns so a
	// terminology corpus split over several files can be merged.
	TermsGlobs []string

	StatuteIndex string // defaults to StatuteIndexName
	TermsIndex   string // defaults to TermsIndexName

	BatchSize       int
	MaxContextChars int
}

// RAGSystem is the retrieval facade: one statute index and one
// terminology index behind a single entry point. Construct it once, run
// EnsureIndexed (or Open) at startup, then Retrieve and FormatContext are
// read-only and safe for concurrent use.
type RAGSystem struct {
	catalog port.IndexCatalog
	opts    RAGOptions

	indexer   *IndexUseCase
	formatter *ContextUseCase
	retriever *RetrieveUseCase

	statutes port.VectorIndex
	terms    port.VectorIndex
}

// NewRAGSystem creates the facade. Nothing touches the catalog until
// EnsureIndexed or Open is called.
func NewRAGSystem(catalog port.IndexCatalog, opts RAGOptions) *RAGSystem {
	if opts.StatuteIndex == "" {
		opts.StatuteIndex = StatuteIndexName
	}
	if opts.TermsIndex == "" {
		opts.TermsIndex = TermsIndexName
	}

	return &RAGSystem{
		catalog:   catalog,
		opts:      opts,
		indexer:   NewIndexUseCase(catalog, opts.BatchSize),
		formatter: NewContextUseCase(opts.MaxContextChars),
	}
}

// SetProgress installs a batch progress hook on the underlying indexer.
func (r *RAGSystem) SetProgress(fn func(done, total int)) {
	r.indexer.Progress = fn
}

// EnsureIndexed loads the corpus and builds any index that is not
// already populated, then opens both for querying. The loaded corpus is
// released afterward; queries only ever hit the vector indexes.
func (r *RAGSystem) EnsureIndexed(ctx context.Context) error {
	tree, err := corpus.LoadStatute(r.opts.StatutePath)
	if err != nil {
		return fmt.Errorf("failed to load statute corpus: %w", err)
	}

	var terms []domain.Term
	if len(r.opts.TermsGlobs) > 0 {
		terms, err = corpus.LoadTermsGlob(r.opts.TermsGlobs)
	} else {
		terms, err = corpus.LoadTerms(r.opts.TermsPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load terminology corpus: %w", err)
	}

	statutes, _, err := r.indexer.EnsureIndexed(ctx, r.opts.StatuteIndex, map[string]string{
		"description": "Turkish Legal Text Embeddings",
	}, BuildStatuteDocuments(tree))
	if err != nil {
		return err
	}

	termIndex, _, err := r.indexer.EnsureIndexed(ctx, r.opts.TermsIndex, map[string]string{
		"description": "Turkish Legal Terms Embeddings",
	}, BuildTermDocuments(terms))
	if err != nil {
		return err
	}

	r.statutes = statutes
	r.terms = termIndex
	r.retriever = NewRetrieveUseCase(statutes, termIndex)
	return nil
}

// Open attaches to already-built indexes without loading the corpus, for
// read-only commands against a finished build.
func (r *RAGSystem) Open(ctx context.Context) error {
	statutes, err := r.catalog.Get(ctx, r.opts.StatuteIndex)
	if err != nil {
		return fmt.Errorf("failed to open statute index: %w", err)
	}
	terms, err := r.catalog.Get(ctx, r.opts.TermsIndex)
	if err != nil {
		return fmt.Errorf("failed to open terminology index: %w", err)
	}

	r.statutes = statutes
	r.terms = terms
	r.retriever = NewRetrieveUseCase(statutes, terms)
	return nil
}

// Retrieve runs the merged similarity search of RetrieveUseCase.
// EnsureIndexed or Open must have succeeded first.
func (r *RAGSystem) Retrieve(ctx context.Context, query string, n int, filter map[string]string) ([]domain.RetrievedResult, error) {
	if r.retriever == nil {
		return nil, fmt.Errorf("%w: indexes not opened, call EnsureIndexed first", domain.ErrIndexNotFound)
	}
	return r.retriever.Retrieve(ctx, query, n, filter)
}

// FormatContext serializes ranked results into the prompt context block.
func (r *RAGSystem) FormatContext(results []domain.RetrievedResult) string {
	return r.formatter.Format(results)
}

// IndexStats reports per-index document counts.
type IndexStats struct {
	Statutes int `json:"statutes"`
	Terms    int `json:"terms"`
}

// Stats counts documents in both indexes.
func (r *RAGSystem) Stats(ctx context.Context) (*IndexStats, error) {
	if r.statutes == nil || r.terms == nil {
		return nil, fmt.Errorf("%w: indexes not opened, call EnsureIndexed first", domain.ErrIndexNotFound)
	}

	statuteCount, err := r.statutes.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count statute index: %w", err)
	}
	termCount, err := r.terms.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count terminology index: %w", err)
	}

	return &IndexStats{Statutes: statuteCount, Terms: termCount}, nil
}
