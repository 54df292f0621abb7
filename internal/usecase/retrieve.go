package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"lexrag/internal/domain"
	"lexrag/internal/port"
)

// Terminology results are a small fixed share of every retrieval, capped
// independently of the caller's n.
const maxTermResults = 3

// RetrieveUseCase runs similarity search against the statute and
// terminology indexes and merges both result sets into one ranking.
type RetrieveUseCase struct {
	statutes port.VectorIndex
	terms    port.VectorIndex
}

// NewRetrieveUseCase creates a new retrieve use case over opened index
// handles.
func NewRetrieveUseCase(statutes, terms port.VectorIndex) *RetrieveUseCase {
	return &RetrieveUseCase{statutes: statutes, terms: terms}
}

// Retrieve returns up to n statute matches (restricted by filter) plus up
// to min(3, n) terminology matches, merged ascending by distance. The
// filter never applies to the terminology index: terms are cross-cutting
// and would vanish under a {"type": "article"} restriction.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, n int, filter map[string]string) ([]domain.RetrievedResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query text", domain.ErrInvalidQuery)
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: n_results must be positive, got %d", domain.ErrInvalidQuery, n)
	}

	statuteResults, err := u.statutes.Query(ctx, query, n, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query statute index: %w", err)
	}

	termCount := maxTermResults
	if n < termCount {
		termCount = n
	}
	termResults, err := u.terms.Query(ctx, query, termCount, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query terminology index: %w", err)
	}

	merged := make([]domain.RetrievedResult, 0, len(statuteResults)+len(termResults))
	merged = append(merged, statuteResults...)
	merged = append(merged, termResults...)

	sort.SliceStable(merged, func(i, j int) bool {
		return resultDistance(merged[i]) < resultDistance(merged[j])
	})

	return merged, nil
}

// resultDistance treats a missing distance as infinitely far, sorting
// unscored results last.
func resultDistance(r domain.RetrievedResult) float64 {
	if r.Distance == nil {
		return math.Inf(1)
	}
	return *r.Distance
}
