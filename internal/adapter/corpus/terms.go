package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"lexrag/internal/domain"
)

// LoadTerms parses a flat term -> definition JSON object. The file is
// decoded token by token so declaration order survives: term document IDs
// are positional (term_0, term_1, ...) and must not depend on map iteration.
func LoadTerms(path string) ([]domain.Term, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCorpusNotFound, path)
		}
		return nil, fmt.Errorf("failed to open terms corpus: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorpusMalformed, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: terms corpus must be a JSON object", domain.ErrCorpusMalformed)
	}

	var terms []domain.Term
	seen := make(map[string]struct{})

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCorpusMalformed, err)
		}
		term, ok := keyTok.(string)
		if !ok || term == "" {
			return nil, fmt.Errorf("%w: empty term key", domain.ErrCorpusMalformed)
		}
		if _, dup := seen[term]; dup {
			return nil, fmt.Errorf("%w: duplicate term %q", domain.ErrCorpusMalformed, term)
		}

		var definition string
		if err := dec.Decode(&definition); err != nil {
			return nil, fmt.Errorf("%w: definition of %q is not a string", domain.ErrCorpusMalformed, term)
		}

		seen[term] = struct{}{}
		terms = append(terms, domain.Term{Term: term, Definition: definition})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorpusMalformed, err)
	}

	return terms, nil
}

// LoadTermsGlob loads every terminology file matched by the doublestar
// patterns and merges them in match order. The first definition of a term
// wins; later files cannot override it.
func LoadTermsGlob(patterns []string) ([]domain.Term, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid terms glob %q: %w", pattern, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	var merged []domain.Term
	for _, path := range paths {
		terms, err := LoadTerms(path)
		if err != nil {
			return nil, err
		}
		merged = MergeTerms(merged, terms)
	}

	return merged, nil
}

// MergeTerms concatenates term lists, dropping entries whose term key was
// already seen in an earlier list. Order is preserved, so positional IDs
// stay stable for the surviving entries.
func MergeTerms(lists ...[]domain.Term) []domain.Term {
	var merged []domain.Term
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, t := range list {
			if _, dup := seen[t.Term]; dup {
				continue
			}
			seen[t.Term] = struct{}{}
			merged = append(merged, t)
		}
	}
	return merged
}
