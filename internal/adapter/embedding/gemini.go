package embedding

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"lexrag/internal/domain"
)

// GeminiEmbedder generates embeddings with the Gemini embedding API.
type GeminiEmbedder struct {
	model     *genai.EmbeddingModel
	name      string
	dimension int
}

func NewGeminiEmbedder(ctx context.Context, apiKeyEnv, model string) (*GeminiEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiEmbedder{
		model:     client.EmbeddingModel(model),
		name:      model,
		dimension: 768,
	}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// The batch endpoint accepts at most 100 contents per request.
	const maxBatch = 100
	var allEmbeddings [][]float32

	for i := 0; i < len(texts); i += maxBatch {
		end := i + maxBatch
		if end > len(texts) {
			end = len(texts)
		}

		batch := e.model.NewBatch()
		for _, text := range texts[i:end] {
			batch = batch.AddContent(genai.Text(text))
		}

		resp, err := e.model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
		}
		if len(resp.Embeddings) != end-i {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", domain.ErrEmbeddingUnavailable, len(resp.Embeddings), end-i)
		}
		for _, emb := range resp.Embeddings {
			allEmbeddings = append(allEmbeddings, emb.Values)
		}
	}

	return allEmbeddings, nil
}

func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

func (e *GeminiEmbedder) ModelName() string {
	return e.name
}
