package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"lexrag/config"
	"lexrag/internal/adapter/embedding"
	"lexrag/internal/adapter/index"
	"lexrag/internal/adapter/llm"
	"lexrag/internal/port"
	"lexrag/internal/usecase"
)

// newEmbedder creates the configured embedding provider, wrapped in a
// query cache unless cache_size is zero.
func newEmbedder(ctx context.Context, cfg *config.Config) (port.Embedder, error) {
	base, err := newBaseEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Embedding.CacheSize > 0 {
		return embedding.NewCachedEmbedder(base, cfg.Embedding.CacheSize, 0), nil
	}
	return base, nil
}

func newBaseEmbedder(ctx context.Context, cfg *config.Config) (port.Embedder, error) {
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
		return nil, fmt.Errorf("unsupported embedding provider: %s", e.Provider)
	}
}

// newLLM creates the configured generation provider.
func newLLM(ctx context.Context, cfg *config.Config) (port.LLM, error) {
	l := cfg.LLM
	switch l.Provider {
	case "openai":
		if l.BaseURL != "" {
			return llm.NewOpenAICompatibleLLM(l.APIKeyEnv, l.Model, l.BaseURL, l.Temperature, l.MaxTokens)
		}
		return llm.NewOpenAILLM(l.APIKeyEnv, l.Model, l.Temperature, l.MaxTokens)
	case "ollama":
		return llm.NewOllamaLLM(l.BaseURL, l.Model, l.Temperature, l.MaxTokens)
	case "gemini":
		return llm.NewGeminiLLM(ctx, l.APIKeyEnv, l.Model, l.Temperature, l.MaxTokens)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", l.Provider)
	}
}

// newCatalog opens the configured vector index backend. The returned func
// releases the backend's resources.
func newCatalog(ctx context.Context, cfg *config.Config, embedder port.Embedder) (port.IndexCatalog, func() error, error) {
	switch cfg.Index.Backend {
	case "bolt", "":
		path := cfg.Index.Path
		if path == "" {
			if err := config.EnsureStateDir(GetRootDir()); err != nil {
				return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
			}
			path = config.IndexDBPath(GetRootDir())
		} else {
			path = resolvePath(path)
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, nil, fmt.Errorf("failed to create index directory: %w", err)
			}
		}
		cat, err := index.NewBoltCatalog(path, embedder)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open index store: %w", err)
		}
		return cat, cat.Close, nil
	case "postgres":
		cat, err := index.NewPgCatalog(ctx, cfg.Index.PostgresDSN, embedder)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return cat, cat.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported index backend: %s", cfg.Index.Backend)
	}
}

// newRAG assembles the facade with paths resolved against the root directory.
func newRAG(catalog port.IndexCatalog, cfg *config.Config) *usecase.RAGSystem {
	globs := make([]string, 0, len(cfg.Corpus.TermsGlobs))
	for _, g := range cfg.Corpus.TermsGlobs {
		globs = append(globs, resolvePath(g))
	}
	if len(globs) == 0 {
		globs = nil
	}

	return usecase.NewRAGSystem(catalog, usecase.RAGOptions{
		StatutePath:     resolvePath(cfg.Corpus.StatutePath),
		TermsPath:       resolvePath(cfg.Corpus.TermsPath),
		TermsGlobs:      globs,
		StatuteIndex:    cfg.Index.StatuteCollection,
		TermsIndex:      cfg.Index.TermsCollection,
		BatchSize:       cfg.Index.BatchSize,
		MaxContextChars: cfg.Retrieve.MaxContextChars,
	})
}

func resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GetRootDir(), p)
}
