package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
	"lexrag/internal/domain"
)

// OllamaEmbedder generates embeddings with a local Ollama server.
type OllamaEmbedder struct {
	client    *api.Client
	model     string
	dimension int
}

// NewOllamaEmbedder connects to the Ollama host (OLLAMA_HOST when host is
// empty) and embeds with the given model.
func NewOllamaEmbedder(host, model string) (*OllamaEmbedder, error) {
	hostURL := envconfig.Host()
	if host != "" {
		parsed, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		hostURL = parsed
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	dimension := 768
	switch model {
	case "nomic-embed-text":
		dimension = 768
	case "mxbai-embed-large":
		dimension = 1024
	case "all-minilm":
		dimension = 384
	}

	return &OllamaEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
	}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	const maxBatch = 100
	var allEmbeddings [][]float32

	for i := 0; i < len(texts); i += maxBatch {
		end := i + maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		resp, err := e.client.Embed(ctx, &api.EmbedRequest{
			Model: e.model,
			Input: batch,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", domain.ErrEmbeddingUnavailable, len(resp.Embeddings), len(batch))
		}
		allEmbeddings = append(allEmbeddings, resp.Embeddings...)
	}

	return allEmbeddings, nil
}

func (e *OllamaEmbedder) Dimension() int {
	return e.dimension
}

func (e *OllamaEmbedder) ModelName() string {
	return e.model
}
