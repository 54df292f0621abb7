package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaLLM generates answers through a local Ollama server.
type OllamaLLM struct {
	client      *api.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOllamaLLM connects to the Ollama host (OLLAMA_HOST when host is
// empty) and generates with the given model.
func NewOllamaLLM(host, model string, temperature float64, maxTokens int) (*OllamaLLM, error) {
	hostURL := envconfig.Host()
	if host != "" {
		parsed, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		hostURL = parsed
	}

	return &OllamaLLM{
		client:      api.NewClient(hostURL, http.DefaultClient),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (o *OllamaLLM) Generate(ctx context.Context, prompt string) (string, error) {
	req := api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Options: map[string]interface{}{
			"temperature": o.temperature,
			"num_predict": o.maxTokens,
		},
	}

	var responseBuilder strings.Builder
	err := o.client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	return responseBuilder.String(), nil
}

func (o *OllamaLLM) ModelName() string {
	return o.model
}
