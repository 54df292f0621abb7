package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"lexrag/internal/adapter/embedding"
	"lexrag/internal/adapter/index"
	"lexrag/internal/domain"
)

const statuteFixture = `{
  "title": "Türk Ceza Kanunu",
  "books": [
    {
      "title": "İkinci Kitap",
      "parts": [
        {
          "title": "Kişilere Karşı Suçlar",
          "chapters": [
            {
              "title": "Malvarlığına Karşı Suçlar",
              "articles": [
                {
                  "number": "141",
                  "content": "Zilyedinin rızası olmadan başkasına ait taşınır bir malı, kendisine veya başkasına bir yarar sağlamak maksadıyla bulunduğu yerden alan kimseye bir yıldan üç yıla kadar hapis cezası verilir.",
                  "key_provisions": [
                    "Hırsızlık suçunun temel şekli",
                    "Bir yıldan üç yıla kadar hapis cezası"
                  ]
                },
                {
                  "number": "142",
                  "content": "Hırsızlık suçunun kamu kurum ve kuruluşlarında bulunan eşya hakkında işlenmesi halinde ceza artırılır."
                }
              ]
            }
          ]
        }
      ]
    }
  ]
}`

const termsFixture = `{
  "hırsızlık": "Başkasına ait taşınır bir malın rıza olmadan alınması",
  "zimmet": "Görevi nedeniyle zilyetliği devredilmiş malın mal edinilmesi",
  "beraat": "Sanığın yargılama sonunda suçsuz bulunması"
}`

// countingEmbedder wraps the deterministic mock and counts Embed calls.
// failOn > 0 makes exactly that call (1-based) fail, for partial-build
// scenarios.
type countingEmbedder struct {
	*embedding.MockEmbedder
	calls  int
	failOn int
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.failOn > 0 && e.calls == e.failOn {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return e.MockEmbedder.Embed(ctx, texts)
}

func writeCorpusFixtures(t *testing.T) (statutePath, termsPath string) {
	t.Helper()
	dir := t.TempDir()

	statutePath = filepath.Join(dir, "law.json")
	if err := os.WriteFile(statutePath, []byte(statuteFixture), 0644); err != nil {
		t.Fatal(err)
	}
	termsPath = filepath.Join(dir, "terms.json")
	if err := os.WriteFile(termsPath, []byte(termsFixture), 0644); err != nil {
		t.Fatal(err)
	}
	return statutePath, termsPath
}

func newTestCatalog(t *testing.T, embedder *countingEmbedder) *index.BoltCatalog {
	t.Helper()
	cat, err := index.NewBoltCatalog(filepath.Join(t.TempDir(), "index.db"), embedder)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cat.Close() })
	return cat
}

func newTestRAG(t *testing.T, embedder *countingEmbedder) *RAGSystem {
	t.Helper()
	statutePath, termsPath := writeCorpusFixtures(t)
	return NewRAGSystem(newTestCatalog(t, embedder), RAGOptions{
		StatutePath: statutePath,
		TermsPath:   termsPath,
	})
}

func TestEnsureIndexedBuildsBothIndexes(t *testing.T) {
	embedder := &countingEmbedder{MockEmbedder: embedding.NewMockEmbedder(32)}
	rag := newTestRAG(t, embedder)
	ctx := context.Background()

	if err := rag.EnsureIndexed(ctx); err != nil {
		t.Fatal(err)
	}

	stats, err := rag.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// 2 articles + 2 provisions, and 3 terms.
	if stats.Statutes != 4 {
		t.Errorf("expected 4 statute documents, got %d", stats.Statutes)
	}
	if stats.Terms != 3 {
		t.Errorf("expected 3 term documents, got %d", stats.Terms)
	}
}

func TestEnsureIndexedSecondRunWritesNothing(t *testing.T) {
	embedder := &countingEmbedder{MockEmbedder: embedding.NewMockEmbedder(32)}
	rag := newTestRAG(t, embedder)
	ctx := context.Background()

	if err := rag.EnsureIndexed(ctx); err != nil {
		t.Fatal(err)
	}
	buildCalls := embedder.calls

	if err := rag.EnsureIndexed(ctx); err != nil {
		t.Fatal(err)
	}
	if embedder.calls != buildCalls {
		t.Errorf("second run must not embed anything: %d calls before, %d after", buildCalls, embedder.calls)
	}

	stats, err := rag.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Statutes != 4 || stats.Terms != 3 {
		t.Errorf("counts changed on second run: %+v", stats)
	}
}

func TestRetrieveBeforeIndexing(t *testing.T) {
	embedder := &countingEmbedder{MockEmbedder: embedding.NewMockEmbedder(32)}
	rag := newTestRAG(t, embedder)

	if _, err := rag.Retrieve(context.Background(), "hırsızlık", 5, nil); err == nil {
		t.Error("expected an error before EnsureIndexed")
	}
}

func TestOpenAttachesWithoutCorpus(t *testing.T) {
	embedder := &countingEmbedder{MockEmbedder: embedding.NewMockEmbedder(32)}
	statutePath, termsPath := writeCorpusFixtures(t)
	catalog := newTestCatalog(t, embedder)
	ctx := context.Background()

	builder := NewRAGSystem(catalog, RAGOptions{StatutePath: statutePath, TermsPath: termsPath})
	if err := builder.EnsureIndexed(ctx); err != nil {
		t.Fatal(err)
	}

	// A second facade over the same catalog opens the finished build; the
	// corpus paths are never touched.
	reader := NewRAGSystem(catalog, RAGOptions{StatutePath: "/nonexistent", TermsPath: "/nonexistent"})
	if err := reader.Open(ctx); err != nil {
		t.Fatal(err)
	}

	results, err := reader.Retrieve(ctx, "hırsızlık nedir", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Error("expected results through the opened facade")
	}
}
