// Package api exposes the document index over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docquery/docquery/internal/answer"
	"github.com/docquery/docquery/internal/store"
)

const maxRequestBodySize = 1 << 20 // 1MB

// QueryService answers questions from the document index.
type QueryService interface {
	AnswerQuery(ctx context.Context, question string) answer.Result
}

// Ingestor converts a directory of PDFs into store records.
type Ingestor interface {
	Directory(dir string) []store.Record
}

// Deps holds the handler dependencies.
type Deps struct {
	Query   QueryService
	Ingest  Ingestor
	Store   store.Gateway
	DocsDir string
}

// NewHandler builds the HTTP routing tree.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/query", handleQuery(deps))
	r.Post("/ingest", handleIngest(deps))
	r.Delete("/documents/{source}", handleDeleteDocument(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Question string `json:"question"`
}

func handleQuery(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}

		writeJSON(w, http.StatusOK, deps.Query.AnswerQuery(r.Context(), req.Question))
	}
}

type ingestRequest struct {
	Fresh bool `json:"fresh"`
}

func handleIngest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		// An empty body means a default (non-fresh) run.
		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if err := deps.Store.EnsureCollection(r.Context(), req.Fresh); err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "preparing collection: %v", err)
			return
		}

		records := deps.Ingest.Directory(deps.DocsDir)
		if len(records) > 0 {
			if err := deps.Store.Insert(r.Context(), records); err != nil {
				httpError(w, http.StatusBadGateway, "api_error", "inserting records: %v", err)
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"records": len(records),
			"fresh":   req.Fresh,
		})
	}
}

func handleDeleteDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source := chi.URLParam(r, "source")
		if source == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "source is required")
			return
		}

		res, err := deps.Store.DeleteBySource(r.Context(), source)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "deleting %s: %v", source, err)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
