package index

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"lexrag/internal/adapter/embedding"
	"lexrag/internal/domain"
)

func newTestCatalog(t *testing.T) *BoltCatalog {
	t.Helper()
	cat, err := NewBoltCatalog(filepath.Join(t.TempDir(), "index.db"), embedding.NewMockEmbedder(32))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cat.Close() })
	return cat
}

func testDocs() []domain.IndexedDocument {
	return []domain.IndexedDocument{
		{ID: "article_141", Text: "Article 141: Hırsızlık suçu", Metadata: map[string]string{"type": "article", "number": "141"}},
		{ID: "article_142", Text: "Article 142: Nitelikli hırsızlık", Metadata: map[string]string{"type": "article", "number": "142"}},
		{ID: "provision_141_0", Text: "Hırsızlık suçunun temel şekli", Metadata: map[string]string{"type": "provision", "article_number": "141"}},
	}
}

func TestCreateGetContract(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	if _, err := cat.Get(ctx, "statutes"); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound for missing index, got %v", err)
	}

	idx, err := cat.Create(ctx, "statutes", map[string]string{"description": "test"})
	if err != nil {
		t.Fatal(err)
	}

	// An existing but empty index may be re-created (aborted build case).
	if _, err := cat.Create(ctx, "statutes", nil); err != nil {
		t.Fatalf("create on empty existing index should succeed, got %v", err)
	}

	if err := idx.Add(ctx, testDocs()); err != nil {
		t.Fatal(err)
	}

	// A populated index refuses creation; that is the indexer's skip signal.
	if _, err := cat.Create(ctx, "statutes", nil); !errors.Is(err, domain.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists for populated index, got %v", err)
	}

	got, err := cat.Get(ctx, "statutes")
	if err != nil {
		t.Fatal(err)
	}
	n, err := got.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 documents, got %d", n)
	}
}

func TestQueryRankingAndValidation(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	idx, err := cat.Create(ctx, "statutes", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(ctx, testDocs()); err != nil {
		t.Fatal(err)
	}

	results, err := idx.Query(ctx, "Article 141: Hırsızlık suçu", 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Identical text embeds identically, so it must rank first at distance 0.
	if results[0].ID != "article_141" {
		t.Errorf("expected article_141 first, got %s", results[0].ID)
	}
	if results[0].Distance == nil || *results[0].Distance > 1e-6 {
		t.Errorf("expected ~0 distance for identical text, got %v", results[0].Distance)
	}

	for i := 1; i < len(results); i++ {
		if results[i].Distance == nil || results[i-1].Distance == nil {
			t.Fatal("bolt results must carry distances")
		}
		if *results[i].Distance < *results[i-1].Distance {
			t.Errorf("distances not non-decreasing at %d", i)
		}
	}

	if _, err := idx.Query(ctx, "", 3, nil); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for empty text, got %v", err)
	}
	if _, err := idx.Query(ctx, "hırsızlık", 0, nil); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for k=0, got %v", err)
	}
}

func TestQueryFilter(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	idx, err := cat.Create(ctx, "statutes", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(ctx, testDocs()); err != nil {
		t.Fatal(err)
	}

	results, err := idx.Query(ctx, "hırsızlık", 10, map[string]string{"type": "article"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 filtered results, got %d", len(results))
	}
	for _, r := range results {
		if r.Metadata["type"] != "article" {
			t.Errorf("filter leaked %s with type %q", r.ID, r.Metadata["type"])
		}
	}

	results, err = idx.Query(ctx, "hırsızlık", 10, map[string]string{"type": "article", "number": "142"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "article_142" {
		t.Errorf("multi-key filter must match every pair, got %+v", results)
	}

	results, err = idx.Query(ctx, "hırsızlık", 10, map[string]string{"type": "no_such"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for unmatched filter, got %d", len(results))
	}
}

func TestQueryTieBreakByInsertionOrder(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	idx, err := cat.Create(ctx, "statutes", nil)
	if err != nil {
		t.Fatal(err)
	}

	// Identical texts embed to identical vectors: every query distance ties.
	docs := []domain.IndexedDocument{
		{ID: "first", Text: "aynı metin", Metadata: map[string]string{"type": "article"}},
		{ID: "second", Text: "aynı metin", Metadata: map[string]string{"type": "article"}},
		{ID: "third", Text: "aynı metin", Metadata: map[string]string{"type": "article"}},
	}
	if err := idx.Add(ctx, docs); err != nil {
		t.Fatal(err)
	}

	for run := 0; run < 5; run++ {
		results, err := idx.Query(ctx, "başka bir sorgu", 3, nil)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"first", "second", "third"}
		for i, w := range want {
			if results[i].ID != w {
				t.Fatalf("run %d: tie order not stable: got %s at %d, want %s", run, results[i].ID, i, w)
			}
		}
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	ctx := context.Background()

	cat, err := NewBoltCatalog(path, embedding.NewMockEmbedder(32))
	if err != nil {
		t.Fatal(err)
	}
	idx, err := cat.Create(ctx, "statutes", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(ctx, testDocs()); err != nil {
		t.Fatal(err)
	}
	if err := cat.Close(); err != nil {
		t.Fatal(err)
	}

	cat2, err := NewBoltCatalog(path, embedding.NewMockEmbedder(32))
	if err != nil {
		t.Fatal(err)
	}
	defer cat2.Close()

	idx2, err := cat2.Get(ctx, "statutes")
	if err != nil {
		t.Fatal(err)
	}
	n, err := idx2.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 documents after reopen, got %d", n)
	}

	results, err := idx2.Query(ctx, "Article 141: Hırsızlık suçu", 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "article_141" {
		t.Errorf("unexpected top result after reopen: %+v", results)
	}
}

func TestGetRejectsDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	ctx := context.Background()

	cat, err := NewBoltCatalog(path, embedding.NewMockEmbedder(32))
	if err != nil {
		t.Fatal(err)
	}
	idx, err := cat.Create(ctx, "statutes", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(ctx, testDocs()); err != nil {
		t.Fatal(err)
	}
	if err := cat.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopening with a different embedding model must not silently search
	// incompatible vectors.
	cat2, err := NewBoltCatalog(path, embedding.NewMockEmbedder(64))
	if err != nil {
		t.Fatal(err)
	}
	defer cat2.Close()

	if _, err := cat2.Get(ctx, "statutes"); err == nil || !strings.Contains(err.Error(), "dimension") {
		t.Errorf("expected dimension mismatch error, got %v", err)
	}
}

func TestDrop(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	idx, err := cat.Create(ctx, "statutes", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(ctx, testDocs()); err != nil {
		t.Fatal(err)
	}

	if err := cat.Drop(ctx, "statutes"); err != nil {
		t.Fatal(err)
	}
	if _, err := cat.Get(ctx, "statutes"); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound after drop, got %v", err)
	}

	// Dropping a missing index is a no-op.
	if err := cat.Drop(ctx, "statutes"); err != nil {
		t.Errorf("drop of missing index should not fail: %v", err)
	}

	// The name is reusable and starts empty.
	idx, err = cat.Create(ctx, "statutes", nil)
	if err != nil {
		t.Fatal(err)
	}
	n, err := idx.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected empty index after drop+create, got %d docs", n)
	}
}

func TestMatchesFilter(t *testing.T) {
	meta := map[string]string{"type": "article", "number": "141"}

	if !matchesFilter(meta, nil) {
		t.Error("nil filter must match")
	}
	if !matchesFilter(meta, map[string]string{}) {
		t.Error("empty filter must match")
	}
	if !matchesFilter(meta, map[string]string{"type": "article"}) {
		t.Error("single pair should match")
	}
	if matchesFilter(meta, map[string]string{"type": "provision"}) {
		t.Error("wrong value should not match")
	}
	if matchesFilter(meta, map[string]string{"book": "any"}) {
		t.Error("missing key should not match")
	}
}
