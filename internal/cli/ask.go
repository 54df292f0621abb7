package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lexrag/internal/domain"
	"lexrag/internal/usecase"
)

var (
	askQuestion    string
	askInteractive bool
	askTopK        int
	askFilter      []string
	askJSON        bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question about Turkish criminal law",
	Long: `Retrieve the relevant articles and terms for a question and answer it
with the configured LLM. Use -i for an interactive session.

Examples:
  lexrag ask -q "Hırsızlık suçunun cezası nedir?"
  lexrag ask -i
  lexrag ask -q "Nitelikli hırsızlık nedir?" --filter type=article --json`,
	RunE: runAskCmd,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer")
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "run an interactive session")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of sources to retrieve (default from config)")
	askCmd.Flags().StringSliceVar(&askFilter, "filter", nil, "statute metadata filter key=value (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
}

func runAskCmd(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	if !askInteractive && askQuestion == "" {
		return fmt.Errorf("question is required, use -q 'your question' or -i for interactive mode")
	}

	filter, err := parseFilter(askFilter)
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	catalog, closeCatalog, err := newCatalog(ctx, cfg, embedder)
	if err != nil {
		return err
	}
	defer closeCatalog()

	rag := newRAG(catalog, cfg)
	if err := rag.Open(ctx); err != nil {
		return fmt.Errorf("no index found, run 'lexrag index' first: %w", err)
	}

	llmClient, err := newLLM(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}

	qa, err := usecase.NewQAUseCase(rag, llmClient, cfg.LLM.PromptStyle)
	if err != nil {
		return err
	}

	topK := cfg.Retrieve.NResults
	if askTopK > 0 {
		topK = askTopK
	}

	if askInteractive {
		return runInteractive(ctx, qa, topK, filter)
	}

	answer, err := qa.Ask(ctx, askQuestion, topK, filter)
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}

	if askJSON {
		output, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(formatAnswer(answer))
	return nil
}

func runInteractive(ctx context.Context, qa *usecase.QAUseCase, topK int, filter map[string]string) error {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Turkish Legal Assistant - ask about the criminal code (type 'exit' to quit)")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if lower := strings.ToLower(input); lower == "exit" || lower == "quit" {
			break
		}

		fmt.Print("Searching the criminal code... ")

		answer, err := qa.Ask(ctx, input, topK, filter)
		if err != nil {
			fmt.Printf("\rError: %v\n", err)
			continue
		}

		fmt.Println("\r" + formatAnswer(answer))
	}

	return scanner.Err()
}

func formatAnswer(answer *domain.Answer) string {
	var sb strings.Builder

	sb.WriteString(answer.Answer)
	sb.WriteString("\n")

	if len(answer.Sources) > 0 {
		sb.WriteString("\nSources:\n")
		for i, source := range answer.Sources {
			label := source.ID
			switch source.Metadata["type"] {
			case domain.TypeArticle:
				label = "Madde " + source.Metadata["number"]
			case domain.TypeProvision:
				label = "Madde " + source.Metadata["article_number"] + " hükmü"
			case domain.TypeLegalTerm:
				label = "Terim: " + source.Metadata["term"]
			}
			sb.WriteString(fmt.Sprintf("  %d. %s [%s]\n", i+1, label, source.ID))
		}
	}

	sb.WriteString(fmt.Sprintf("\nAnswered in %.2fs", answer.ProcessingTime))
	return sb.String()
}
