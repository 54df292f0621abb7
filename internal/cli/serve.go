package cli

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"lexrag/internal/api"
	"lexrag/internal/usecase"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the QA HTTP API",
	Long: `Start the HTTP API. Indexing runs first, so the server only comes up
once both collections are ready.

Endpoints:
  POST /api/v1/qa/question   answer a question
  POST /api/v1/qa/search     retrieval only
  GET  /health               readiness and collection counts`,
	RunE: runServeCmd,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServeCmd(cmd *cobra.Command, args []string) error {
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
	fmt.Println("Ensuring collections are indexed...")
	if err := rag.EnsureIndexed(ctx); err != nil {
		return fmt.Errorf("failed to prepare indexes: %w", err)
	}

	llmClient, err := newLLM(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}

	qa, err := usecase.NewQAUseCase(rag, llmClient, cfg.LLM.PromptStyle)
	if err != nil {
		return err
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := api.NewServer(rag, qa, api.Options{CORSOrigins: cfg.Server.CORSOrigins})

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	fmt.Printf("Serving on %s (model: %s)\n", addr, llmClient.ModelName())
	return srv.Run(addr)
}
