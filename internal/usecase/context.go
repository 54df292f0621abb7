package usecase

import (
	"fmt"
	"strings"

	"lexrag/internal/domain"
)

// Section headers in the generated context block.
const (
	statuteHeader = "İlgili Kanun Maddeleri:"
	termsHeader   = "\nİlgili Hukuki Terimler:"
)

// ContextUseCase serializes ranked retrieval results into the context
// block handed to the language model: statute entries first, terminology
// afterward, blank-line separated.
type ContextUseCase struct {
	maxChars int
}

// NewContextUseCase creates a new context use case. maxChars <= 0 means
// no budget; otherwise whole entries are dropped from the tail once the
// rendered length exceeds it (rank order decides who stays).
func NewContextUseCase(maxChars int) *ContextUseCase {
	return &ContextUseCase{maxChars: maxChars}
}

// Format renders the results. Empty input yields "", which the QA chain
// treats as the no-relevant-context case.
func (u *ContextUseCase) Format(results []domain.RetrievedResult) string {
	if len(results) == 0 {
		return ""
	}

	kept := results
	if u.maxChars > 0 {
		kept = nil
		total := 0
		for _, r := range results {
			rendered := renderResult(r)
			if total+len(rendered) > u.maxChars && len(kept) > 0 {
				break
			}
			total += len(rendered)
			kept = append(kept, r)
		}
	}

	var statutes, terms []string
	for _, r := range kept {
		if r.Metadata["type"] == domain.TypeLegalTerm {
			terms = append(terms, renderResult(r))
		} else {
			statutes = append(statutes, renderResult(r))
		}
	}

	parts := make([]string, 0, len(kept)+2)
	if len(statutes) > 0 {
		parts = append(parts, statuteHeader)
		parts = append(parts, statutes...)
	}
	if len(terms) > 0 {
		parts = append(parts, termsHeader)
		parts = append(parts, terms...)
	}

	return strings.Join(parts, "\n\n")
}

// renderResult produces one context entry. Article content is stored with
// an "Article {number}: " embedding prefix; that prefix is stripped here
// so the entry reads "Madde {number}: {content}" without doubling up.
func renderResult(r domain.RetrievedResult) string {
	switch r.Metadata["type"] {
	case domain.TypeArticle:
		number := r.Metadata["number"]
		content := strings.TrimPrefix(r.Content, fmt.Sprintf("Article %s: ", number))
		return fmt.Sprintf("Madde %s: %s", number, content)
	case domain.TypeProvision:
		return fmt.Sprintf("Madde %s - %s", r.Metadata["article_number"], r.Content)
	default:
		return r.Content
	}
}
