package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiLLM generates answers with the Gemini generation API.
type GeminiLLM struct {
	model *genai.GenerativeModel
	name  string
}

func NewGeminiLLM(ctx context.Context, apiKeyEnv, model string, temperature float64, maxTokens int) (*GeminiLLM, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	m := client.GenerativeModel(model)
	m.SetTemperature(float32(temperature))
	if maxTokens > 0 {
		m.SetMaxOutputTokens(int32(maxTokens))
	}

	return &GeminiLLM{model: m, name: model}, nil
}

func (g *GeminiLLM) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("API returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("API candidate has no content (finish reason: %v)", candidate.FinishReason)
	}

	var responseBuilder strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseBuilder.WriteString(string(text))
		}
	}

	return responseBuilder.String(), nil
}

func (g *GeminiLLM) ModelName() string {
	return g.name
}
