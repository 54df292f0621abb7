package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"lexrag/config"
	"lexrag/internal/adapter/embedding"
	"lexrag/internal/adapter/index"
	"lexrag/internal/port"
	"lexrag/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Project directory holding the config and index")
	query := flag.String("q", "", "Question to probe the indexes with")
	topK := flag.Int("k", 10, "Number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir . -q \"Hırsızlık suçunun cezası nedir?\"")
		fmt.Println("\nChecks:")
		fmt.Println("  1. Embedding infrastructure (model connection, index store)")
		fmt.Println("  2. Semantic similarity between the question and retrieved law")
		fmt.Println("  3. Cross-collection merge (statute articles vs legal terms)")
		os.Exit(1)
	}

	ctx := context.Background()

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	embedder, err := setupEmbedder(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
		os.Exit(1)
	}

	cat, err := index.NewBoltCatalog(config.IndexDBPath(*dir), embedder)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer cat.Close()

	rag := usecase.NewRAGSystem(cat, usecase.RAGOptions{
		StatuteIndex:    cfg.Index.StatuteCollection,
		TermsIndex:      cfg.Index.TermsCollection,
		MaxContextChars: cfg.Retrieve.MaxContextChars,
	})
	if err := rag.Open(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "No usable index: %v\n", err)
		os.Exit(1)
	}

	stats, err := rag.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Stats error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL QUALITY BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Statute documents: %d\n", stats.Statutes)
	fmt.Printf("Term documents:    %d\n", stats.Terms)
	fmt.Printf("Model: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	fmt.Println()

	fmt.Printf("Question: %q\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	results, err := rag.Retrieve(ctx, *query, *topK, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval error: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No results, the indexes look empty.")
		os.Exit(1)
	}

	fmt.Printf("Top %d matches:\n\n", len(results))

	totalScore := 0.0
	scored := 0
	topSimilarity := 0.0

	for i, r := range results {
		preview := strings.ReplaceAll(r.Content, "\n", " ")
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}

		if r.Distance == nil {
			fmt.Printf("%d. [n/a] %s (%s)\n", i+1, r.ID, r.Metadata["type"])
			fmt.Printf("   %s\n\n", preview)
			continue
		}

		similarity := 1 - *r.Distance
		totalScore += similarity
		scored++
		if i == 0 {
			topSimilarity = similarity
		}

		rating := "LOW"
		if similarity > 0.7 {
			rating = "HIGH"
		} else if similarity > 0.5 {
			rating = "GOOD"
		} else if similarity > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s (%s)\n", i+1, rating, similarity, r.ID, r.Metadata["type"])
		fmt.Printf("   %s\n\n", preview)
	}

	if scored == 0 {
		fmt.Println("No scored results, backend did not report distances.")
		return
	}

	avgScore := totalScore / float64(scored)
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", topSimilarity)

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - retrieval is finding relevant law")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - try a different embedding model and re-index")
	}
}

func setupEmbedder(ctx context.Context, cfg *config.Config) (port.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "openai":
		if e.BaseURL != "" {
			return embedding.NewOpenAICompatibleEmbedder(e.APIKeyEnv, e.Model, e.BaseURL)
		}
		return embedding.NewOpenAIEmbedder(e.APIKeyEnv, e.Model)
	case "ollama":
		return embedding.NewOllamaEmbedder(e.BaseURL, e.Model)
	case "gemini":
		return embedding.NewGeminiEmbedder(ctx, e.APIKeyEnv, e.Model)
	case "mock":
		return embedding.NewMockEmbedder(e.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", e.Provider)
	}
}
