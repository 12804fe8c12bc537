package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/docquery/docquery/internal/answer"
	"github.com/docquery/docquery/internal/api"
	"github.com/docquery/docquery/internal/config"
	"github.com/docquery/docquery/internal/gemini"
	"github.com/docquery/docquery/internal/ingest"
	"github.com/docquery/docquery/internal/ollama"
	"github.com/docquery/docquery/internal/rag"
	"github.com/docquery/docquery/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the docquery server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

// openGateway builds the configured storage backend. The returned closer is
// a no-op for Weaviate.
func openGateway(ctx context.Context, cfg config.Config) (store.Gateway, func() error, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		embedder := ollama.New(cfg.Ollama.BaseURL, cfg.Ollama.EmbedModel)
		if err := ollama.EnsureReady(ctx, embedder, os.Stderr); err != nil {
			return nil, nil, err
		}
		s, err := store.OpenSQLite(cfg.Storage.DataDir, embedder)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, s.Close, nil
	default:
		w := store.NewWeaviate(store.WeaviateConfig{
			BaseURL:    cfg.Weaviate.URL,
			APIKey:     cfg.Weaviate.APIKey,
			Collection: cfg.Weaviate.Collection,
		})
		return w, func() error { return nil }, nil
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "docquery version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, closeGateway, err := openGateway(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeGateway(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing store: %v\n", err)
		}
	}()

	if err := gateway.EnsureCollection(ctx, false); err != nil {
		return fmt.Errorf("preparing collection: %w", err)
	}

	// Build the query and ingestion stack.
	model := gemini.New(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, cfg.Gemini.Model)
	generator := answer.NewGenerator(model, slog.Default())
	service := rag.NewService(gateway, generator, cfg.Retrieval.TopK)
	pipeline := ingest.NewPipeline(ingest.OpenPDF)

	handler := api.NewHandler(api.Deps{
		Query:   service,
		Ingest:  pipeline,
		Store:   gateway,
		DocsDir: cfg.Storage.DocsDir,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server on stdio transport.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Query:  service,
		Search: gateway,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "docquery listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
