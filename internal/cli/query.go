package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queryText   string
	queryTopK   int
	queryJSON   bool
	queryFilter []string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the indexed collections",
	Long: `Retrieve the most similar statute articles and legal terms for a query
and print them ranked by distance, followed by the formatted context block.

Examples:
  lexrag query -q "hırsızlık cezası"
  lexrag query -q "taşınır mal" -k 10 --filter type=article --json`,
	RunE: runQueryCmd,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().StringSliceVar(&queryFilter, "filter", nil, "statute metadata filter key=value (repeatable)")
	queryCmd.MarkFlagRequired("query")
}

// parseFilter turns repeated key=value flags into a metadata filter.
func parseFilter(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filter := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", pair)
		}
		filter[key] = value
	}
	return filter, nil
}

func runQueryCmd(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	filter, err := parseFilter(queryFilter)
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

	topK := cfg.Retrieve.NResults
	if queryTopK > 0 {
		topK = queryTopK
	}

	results, err := rag.Retrieve(ctx, queryText, topK, filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		distance := "n/a"
		if r.Distance != nil {
			distance = fmt.Sprintf("%.4f", *r.Distance)
		}
		fmt.Printf("--- [%d] %s (type: %s, distance: %s) ---\n", i+1, r.ID, r.Metadata["type"], distance)
		text := r.Content
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}

	fmt.Println("Context block:")
	fmt.Println(rag.FormatContext(results))
	return nil
}
