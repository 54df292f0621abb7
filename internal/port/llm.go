package port

import "context"

// LLM is an opaque text-generation capability consumed by the QA chain.
type LLM interface {
	// Generate generates text for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
