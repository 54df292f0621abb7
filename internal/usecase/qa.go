package usecase

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"text/template"
	"time"

	"lexrag/internal/domain"
	"lexrag/internal/port"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

// Prompt styles selectable for answer generation.
const (
	PromptBasic      = "basic"
	PromptStructured = "structured"
	PromptMultiStep  = "multistep"
)

// NoAnswerFallback is returned verbatim when retrieval finds nothing;
// the model is never called in that case.
const NoAnswerFallback = "I couldn't find any relevant information to answer your question."

// TODO: replace the fixed confidence with real scoring once answer
// evaluation lands.
const placeholderConfidence = 0.8

// PromptData feeds the prompt templates.
type PromptData struct {
	Context  string
	Question string
}

// QAUseCase answers a question by retrieving context through the RAG
// facade and prompting the language model with it.
type QAUseCase struct {
	rag  *RAGSystem
	llm  port.LLM
	tmpl *template.Template
}

// NewQAUseCase creates a new QA use case with the given prompt style
// (empty selects basic). Unknown styles fail here rather than on the
// first question.
func NewQAUseCase(rag *RAGSystem, llm port.LLM, style string) (*QAUseCase, error) {
	if style == "" {
		style = PromptBasic
	}

	content, err := promptTemplates.ReadFile("templates/" + style + ".txt")
	if err != nil {
		return nil, fmt.Errorf("unknown prompt style %q: %w", style, err)
	}

	tmpl, err := template.New(style).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template %q: %w", style, err)
	}

	return &QAUseCase{rag: rag, llm: llm, tmpl: tmpl}, nil
}

// Ask retrieves context for the question and generates an answer. An
// empty retrieval yields the fallback answer without a model call.
func (u *QAUseCase) Ask(ctx context.Context, question string, n int, filter map[string]string) (*domain.Answer, error) {
	start := time.Now()

	results, err := u.rag.Retrieve(ctx, question, n, filter)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &domain.Answer{
			Answer:          NoAnswerFallback,
			ConfidenceScore: placeholderConfidence,
			Sources:         []domain.RetrievedResult{},
			ProcessingTime:  time.Since(start).Seconds(),
		}, nil
	}

	prompt, err := u.BuildPrompt(question, u.rag.FormatContext(results))
	if err != nil {
		return nil, err
	}

	answer, err := u.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &domain.Answer{
		Answer:          answer,
		ConfidenceScore: placeholderConfidence,
		Sources:         results,
		ProcessingTime:  time.Since(start).Seconds(),
	}, nil
}

// BuildPrompt renders the selected template with the context block and
// question.
func (u *QAUseCase) BuildPrompt(question, contextBlock string) (string, error) {
	var buf bytes.Buffer
	err := u.tmpl.Execute(&buf, PromptData{Context: contextBlock, Question: question})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}
