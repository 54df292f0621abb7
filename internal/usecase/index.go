package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"lexrag/internal/domain"
	"lexrag/internal/port"
)

// Default index names, matching the corpus they hold.
const (
	StatuteIndexName = "turkish_criminal_law"
	TermsIndexName   = "turkish_legal_terms"
)

const defaultBatchSize = 100

// IndexUseCase builds vector indexes from corpus documents. Builds are
// idempotent: a populated index is left untouched, an empty or partially
// failed one is rebuilt from scratch.
type IndexUseCase struct {
	catalog   port.IndexCatalog
	batchSize int

	// Progress, when set, is called after every stored batch with the
	// number of documents written so far and the total.
	Progress func(done, total int)
}

// NewIndexUseCase creates a new index use case. batchSize <= 0 selects
// the default of 100 documents per add call.
func NewIndexUseCase(catalog port.IndexCatalog, batchSize int) *IndexUseCase {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &IndexUseCase{catalog: catalog, batchSize: batchSize}
}

// EnsureIndexed makes sure the named index exists and holds docs. When the
// index is already populated it is returned as-is and built is false.
// Otherwise the documents are added in batches; any failure drops the
// half-built index so the next call re-attempts a full build instead of
// mistaking the remnant for a finished one.
func (u *IndexUseCase) EnsureIndexed(ctx context.Context, name string, metadata map[string]string, docs []domain.IndexedDocument) (port.VectorIndex, bool, error) {
	idx, err := u.catalog.Create(ctx, name, metadata)
	if errors.Is(err, domain.ErrIndexExists) {
		existing, err := u.catalog.Get(ctx, name)
		if err != nil {
			return nil, false, fmt.Errorf("failed to open index %s: %w", name, err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create index %s: %w", name, err)
	}

	for i := 0; i < len(docs); i += u.batchSize {
		end := i + u.batchSize
		if end > len(docs) {
			end = len(docs)
		}

		if err := idx.Add(ctx, docs[i:end]); err != nil {
			if dropErr := u.catalog.Drop(ctx, name); dropErr != nil {
				return nil, false, fmt.Errorf("failed to index %s: %w (cleanup also failed: %v)", name, err, dropErr)
			}
			return nil, false, fmt.Errorf("failed to index %s: %w", name, err)
		}

		if u.Progress != nil {
			u.Progress(end, len(docs))
		}
	}

	return idx, true, nil
}

// BuildStatuteDocuments flattens the statute tree into indexable
// documents: one per article plus one per key provision. IDs are
// deterministic, so rebuilding the same corpus yields the same ID set.
func BuildStatuteDocuments(tree *domain.StatuteTree) []domain.IndexedDocument {
	articles := tree.Articles()
	docs := make([]domain.IndexedDocument, 0, len(articles))

	for _, a := range articles {
		metadata := map[string]string{
			"type":   domain.TypeArticle,
			"number": a.Number,
		}
		if a.Book != "" {
			metadata["book"] = a.Book
		}
		if a.Part != "" {
			metadata["part"] = a.Part
		}
		if a.Chapter != "" {
			metadata["chapter"] = a.Chapter
		}

		docs = append(docs, domain.IndexedDocument{
			ID:       "article_" + a.Number,
			Text:     fmt.Sprintf("Article %s: %s", a.Number, a.Content),
			Metadata: metadata,
		})

		for i, provision := range a.KeyProvisions {
			docs = append(docs, domain.IndexedDocument{
				ID:   fmt.Sprintf("provision_%s_%d", a.Number, i),
				Text: provision,
				Metadata: map[string]string{
					"type":            domain.TypeProvision,
					"article_number":  a.Number,
					"provision_index": strconv.Itoa(i),
				},
			})
		}
	}

	return docs
}

// BuildTermDocuments converts terminology entries into indexable
// documents. IDs are positional, which is why the loader preserves the
// corpus declaration order.
func BuildTermDocuments(terms []domain.Term) []domain.IndexedDocument {
	docs := make([]domain.IndexedDocument, 0, len(terms))
	for i, t := range terms {
		docs = append(docs, domain.IndexedDocument{
			ID:   fmt.Sprintf("term_%d", i),
			Text: fmt.Sprintf("%s: %s", t.Term, t.Definition),
			Metadata: map[string]string{
				"type": domain.TypeLegalTerm,
				"term": t.Term,
			},
		})
	}
	return docs
}
