package corpus

import (
	"encoding/json"
	"fmt"
	"os"

	"lexrag/internal/domain"
)

// LoadStatute parses the nested statute corpus (book -> part -> chapter ->
// article) from a JSON file. Articles are validated but not flattened; use
// StatuteTree.Articles for the indexing order.
func LoadStatute(path string) (*domain.StatuteTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCorpusNotFound, path)
		}
		return nil, fmt.Errorf("failed to read statute corpus: %w", err)
	}

	var tree domain.StatuteTree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorpusMalformed, err)
	}

	if err := validateStatute(&tree); err != nil {
		return nil, err
	}

	return &tree, nil
}

func validateStatute(tree *domain.StatuteTree) error {
	if len(tree.Books) == 0 {
		return fmt.Errorf("%w: statute has no books", domain.ErrCorpusMalformed)
	}

	seen := make(map[string]struct{})
	for _, book := range tree.Books {
		if book.Title == "" {
			return fmt.Errorf("%w: book missing title", domain.ErrCorpusMalformed)
		}
		for _, part := range book.Parts {
			for _, chapter := range part.Chapters {
				for _, a := range chapter.Articles {
					if a.Number == "" {
						return fmt.Errorf("%w: article missing number in chapter %q", domain.ErrCorpusMalformed, chapter.Title)
					}
					if a.Content == "" {
						return fmt.Errorf("%w: article %s has no content", domain.ErrCorpusMalformed, a.Number)
					}
					if _, dup := seen[a.Number]; dup {
						return fmt.Errorf("%w: duplicate article number %s", domain.ErrCorpusMalformed, a.Number)
					}
					seen[a.Number] = struct{}{}
				}
			}
		}
	}

	return nil
}
