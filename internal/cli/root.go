package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"lexrag/config"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "lexrag",
	Short: "Turkish legal QA - index the criminal code and answer questions over it",
	Long: `lexrag indexes the Turkish Criminal Code and a legal terminology
dictionary into vector collections, retrieves the most similar articles and
terms for a question, and answers it with an LLM grounded in that context.

Example usage:
  lexrag index                                # Build both vector collections
  lexrag query -q "hırsızlık cezası"          # Inspect raw retrieval results
  lexrag ask -q "Hırsızlığın cezası nedir?"   # Ask a question
  lexrag serve                                # Serve the HTTP API`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		// .env is optional; real environment variables always win.
		_ = godotenv.Load()

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./lexrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
