package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection document counts",
	RunE:  runStatsCmd,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}

func runStatsCmd(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

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

	stats, err := rag.Stats(ctx)
	if err != nil {
		return err
	}

	if statsJSON {
		output, _ := json.MarshalIndent(map[string]int{
			cfg.Index.StatuteCollection: stats.Statutes,
			cfg.Index.TermsCollection:   stats.Terms,
		}, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("%s: %d documents\n", cfg.Index.StatuteCollection, stats.Statutes)
	fmt.Printf("%s: %d documents\n", cfg.Index.TermsCollection, stats.Terms)
	return nil
}
