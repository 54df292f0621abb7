package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	indexStatutePath string
	indexTermsPath   string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the statute and terminology vector collections",
	Long: `Load the corpus files, embed every article, provision and term, and
store the vectors in the configured backend. Collections that already hold
documents are left untouched, so reruns are cheap.

Examples:
  lexrag index                       # Build from the configured corpus
  lexrag index --statute law.json    # Override the statute corpus file`,
	RunE: runIndexCmd,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&indexStatutePath, "statute", "", "statute corpus JSON (default from config)")
	indexCmd.Flags().StringVar(&indexTermsPath, "terms", "", "terminology corpus JSON (default from config)")
}

func runIndexCmd(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	if indexStatutePath != "" {
		cfg.Corpus.StatutePath = indexStatutePath
	}
	if indexTermsPath != "" {
		cfg.Corpus.TermsPath = indexTermsPath
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

	// One bar per collection; a new total starts a fresh bar.
	var bar *progressbar.ProgressBar
	var barTotal int
	rag.SetProgress(func(done, total int) {
		if bar == nil || barTotal != total {
			barTotal = total
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	})

	fmt.Printf("Indexing corpus with %s embeddings into the %s backend...\n",
		cfg.Embedding.Provider, cfg.Index.Backend)

	if err := rag.EnsureIndexed(ctx); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	stats, err := rag.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  %s: %d documents\n", cfg.Index.StatuteCollection, stats.Statutes)
	fmt.Printf("  %s: %d documents\n", cfg.Index.TermsCollection, stats.Terms)
	return nil
}
