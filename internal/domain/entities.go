package domain

// Article is one statute provision from the criminal code corpus.
// Number is unique across the whole corpus and seeds the stable
// document ID (article_<number>).
type Article struct {
	Number        string   `json:"number"`
	Content       string   `json:"content"`
	Book          string   `json:"book,omitempty"`
	Part          string   `json:"part,omitempty"`
	Chapter       string   `json:"chapter,omitempty"`
	KeyProvisions []string `json:"key_provisions,omitempty"`
}

// Term is one terminology entry. Term keys are unique.
type Term struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// StatuteTree mirrors the nested corpus layout: book -> part -> chapter -> article.
type StatuteTree struct {
	Title string `json:"title,omitempty"`
	Books []Book `json:"books"`
}

type Book struct {
	Title string `json:"title"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Title    string    `json:"title"`
	Chapters []Chapter `json:"chapters"`
}

type Chapter struct {
	Title    string    `json:"title"`
	Articles []Article `json:"articles"`
}

// Articles flattens the tree in declaration order (book -> part -> chapter
// -> article) with the hierarchy labels filled in on each article.
func (t *StatuteTree) Articles() []Article {
	var out []Article
	for _, book := range t.Books {
		for _, part := range book.Parts {
			for _, chapter := range part.Chapters {
				for _, a := range chapter.Articles {
					a.Book = book.Title
					a.Part = part.Title
					a.Chapter = chapter.Title
					out = append(out, a)
				}
			}
		}
	}
	return out
}

// Document kinds stored in the vector indexes. Every IndexedDocument
// carries exactly one of these in metadata["type"]; the context formatter
// keys off it.
const (
	TypeArticle   = "article"
	TypeProvision = "provision"
	TypeLegalTerm = "legal_term"
)

// IndexedDocument is the unit stored in a vector index. The embedding is
// computed and owned by the index backend at add-time and never appears here.
type IndexedDocument struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// RetrievedResult is one ranked search hit. Distance is a dissimilarity
// score (lower is more relevant); nil means the backend reported none,
// which sorts after every scored result.
type RetrievedResult struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Distance *float64          `json:"distance"`
}

// Answer is the QA chain's output for one question.
type Answer struct {
	Answer          string            `json:"answer"`
	ConfidenceScore float64           `json:"confidence_score"`
	Sources         []RetrievedResult `json:"sources"`
	ProcessingTime  float64           `json:"processing_time"`
}
