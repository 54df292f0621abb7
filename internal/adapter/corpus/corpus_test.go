package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lexrag/internal/domain"
)

const statuteJSON = `{
  "title": "Türk Ceza Kanunu",
  "books": [
    {
      "title": "Birinci Kitap",
      "parts": [
        {
          "title": "Birinci Kısım",
          "chapters": [
            {
              "title": "Birinci Bölüm",
              "articles": [
                {"number": "1", "content": "Ceza Kanununun amacı..."},
                {
                  "number": "141",
                  "content": "Zilyedinin rızası olmadan başkasına ait taşınır bir malı alan kimse...",
                  "key_provisions": ["Hırsızlık suçunun temel şekli", "Taşınır mal şartı"]
                }
              ]
            }
          ]
        }
      ]
    }
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadStatute(t *testing.T) {
	path := writeFile(t, t.TempDir(), "law.json", statuteJSON)

	tree, err := LoadStatute(path)
	if err != nil {
		t.Fatal(err)
	}

	if tree.Title != "Türk Ceza Kanunu" {
		t.Errorf("unexpected title: %q", tree.Title)
	}

	articles := tree.Articles()
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}

	a := articles[1]
	if a.Number != "141" {
		t.Errorf("expected article 141, got %s", a.Number)
	}
	if a.Book != "Birinci Kitap" || a.Part != "Birinci Kısım" || a.Chapter != "Birinci Bölüm" {
		t.Errorf("hierarchy labels not filled: %+v", a)
	}
	if len(a.KeyProvisions) != 2 {
		t.Errorf("expected 2 key provisions, got %d", len(a.KeyProvisions))
	}
}

func TestLoadStatuteNotFound(t *testing.T) {
	_, err := LoadStatute(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, domain.ErrCorpusNotFound) {
		t.Errorf("expected ErrCorpusNotFound, got %v", err)
	}
}

func TestLoadStatuteMalformed(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"not_json.json":   `{"books": [`,
		"no_books.json":   `{"title": "x", "books": []}`,
		"no_number.json":  `{"books": [{"title": "b", "parts": [{"title": "p", "chapters": [{"title": "c", "articles": [{"content": "x"}]}]}]}]}`,
		"duplicate.json":  `{"books": [{"title": "b", "parts": [{"title": "p", "chapters": [{"title": "c", "articles": [{"number": "1", "content": "x"}, {"number": "1", "content": "y"}]}]}]}]}`,
		"no_content.json": `{"books": [{"title": "b", "parts": [{"title": "p", "chapters": [{"title": "c", "articles": [{"number": "5", "content": ""}]}]}]}]}`,
	}

	for name, content := range cases {
		path := writeFile(t, dir, name, content)
		if _, err := LoadStatute(path); !errors.Is(err, domain.ErrCorpusMalformed) {
			t.Errorf("%s: expected ErrCorpusMalformed, got %v", name, err)
		}
	}
}

func TestLoadTermsPreservesOrder(t *testing.T) {
	path := writeFile(t, t.TempDir(), "terms.json", `{
  "zimmet": "Görevi sebebiyle zilyedliği kendisine devredilmiş malı mal edinme",
  "irtikap": "Görevinin sağladığı nüfuzu kötüye kullanma",
  "beraat": "Sanığın suçsuz bulunması"
}`)

	terms, err := LoadTerms(path)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"zimmet", "irtikap", "beraat"}
	if len(terms) != len(want) {
		t.Fatalf("expected %d terms, got %d", len(want), len(terms))
	}
	for i, w := range want {
		if terms[i].Term != w {
			t.Errorf("position %d: expected %q, got %q", i, w, terms[i].Term)
		}
	}
}

func TestLoadTermsMalformed(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"array.json":     `["zimmet"]`,
		"dup.json":       `{"zimmet": "a", "zimmet": "b"}`,
		"nonstring.json": `{"zimmet": 42}`,
		"truncated.json": `{"zimmet": "a"`,
	}

	for name, content := range cases {
		path := writeFile(t, dir, name, content)
		if _, err := LoadTerms(path); !errors.Is(err, domain.ErrCorpusMalformed) {
			t.Errorf("%s: expected ErrCorpusMalformed, got %v", name, err)
		}
	}
}

func TestLoadTermsNotFound(t *testing.T) {
	_, err := LoadTerms(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, domain.ErrCorpusNotFound) {
		t.Errorf("expected ErrCorpusNotFound, got %v", err)
	}
}

func TestLoadTermsGlobFirstWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_terms.json", `{"zimmet": "ilk tanım", "beraat": "suçsuz bulunma"}`)
	writeFile(t, dir, "b_terms.json", `{"zimmet": "ikinci tanım", "iade": "geri verme"}`)

	terms, err := LoadTermsGlob([]string{filepath.Join(dir, "*_terms.json")})
	if err != nil {
		t.Fatal(err)
	}

	if len(terms) != 3 {
		t.Fatalf("expected 3 merged terms, got %d", len(terms))
	}
	if terms[0].Term != "zimmet" || terms[0].Definition != "ilk tanım" {
		t.Errorf("first definition should win, got %+v", terms[0])
	}
}

func TestMergeTerms(t *testing.T) {
	a := []domain.Term{{Term: "x", Definition: "1"}}
	b := []domain.Term{{Term: "x", Definition: "2"}, {Term: "y", Definition: "3"}}

	merged := MergeTerms(a, b)
	if len(merged) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(merged))
	}
	if merged[0].Definition != "1" {
		t.Errorf("earlier list should win for duplicate keys")
	}
	if merged[1].Term != "y" {
		t.Errorf("expected y second, got %q", merged[1].Term)
	}
}
