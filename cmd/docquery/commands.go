package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/docquery/docquery/internal/config"
)

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the document directory into the vector index",
	Long: `Ingest the document directory into the vector index.

Examples:
  docquery ingest
  docquery ingest --fresh`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fresh, _ := cmd.Flags().GetBool("fresh")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/ingest", map[string]any{"fresh": fresh})
		if err != nil {
			return err
		}

		var result struct {
			Records int  `json:"records"`
			Fresh   bool `json:"fresh"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Indexed %d records", result.Records)
		return nil
	},
}

func init() {
	ingestCmd.Flags().Bool("fresh", false, "drop the existing collection and re-index everything")
}

// --- query ---

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question against the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := joinArgs(args)

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/query", map[string]string{"question": question})
		if err != nil {
			return err
		}

		var result struct {
			Answer  string           `json:"answer"`
			Sources []map[string]any `json:"sources"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Answer)
		for _, src := range result.Sources {
			printStatus("Source", "%v", src)
		}
		return nil
	},
}

// --- delete ---

var deleteCmd = &cobra.Command{
	Use:   "delete <source-file>",
	Short: "Remove all records of one source document from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/documents/"+args[0])
		if err != nil {
			return err
		}

		var result struct {
			Matched   int `json:"matched"`
			Succeeded int `json:"succeeded"`
			Failed    int `json:"failed"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Matched == 0 {
			printWarning("No records found for %s", args[0])
			return nil
		}
		printSuccess("Deleted %d of %d records for %s", result.Succeeded, result.Matched, args[0])
		return nil
	},
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show docquery system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			printError("config error: %v", err)
			return nil
		}

		client := &http.Client{Timeout: 2 * time.Second}

		resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
		if err != nil {
			printStatus("Server", "stopped")
		} else {
			resp.Body.Close()
			if resp.StatusCode == 200 {
				printStatus("Server", "running on port %d", cfg.Server.Port)
			} else {
				printStatus("Server", "error (HTTP %d)", resp.StatusCode)
			}
		}

		printStatus("Backend", "%s", cfg.Storage.Backend)
		if cfg.Storage.Backend == "sqlite" {
			printStatus("Embed model", "%s", cfg.Ollama.EmbedModel)
			printStatus("Data dir", "%s", cfg.Storage.DataDir)
		} else {
			printStatus("Weaviate", "%s", cfg.Weaviate.URL)
			printStatus("Collection", "%s", cfg.Weaviate.Collection)
		}
		printStatus("Model", "%s", cfg.Gemini.Model)
		printStatus("Docs dir", "%s", cfg.Storage.DocsDir)
		return nil
	},
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}
