package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// WeaviateConfig configures the Weaviate-backed Gateway.
type WeaviateConfig struct {
	// BaseURL is the cluster endpoint, e.g. https://cluster.weaviate.cloud.
	BaseURL string
	// APIKey authenticates every request via bearer token.
	APIKey string
	// Collection is the Weaviate class holding the records.
	Collection string
	// Timeout bounds each request; defaults to 30s.
	Timeout time.Duration
}

// Weaviate talks to a Weaviate instance over its REST and GraphQL APIs.
// Vectorization happens server-side (text2vec module), so records carry no
// client-computed embeddings. Compile-time check below.
type Weaviate struct {
	cfg        WeaviateConfig
	baseURL    string
	httpClient *http.Client
}

var _ Gateway = (*Weaviate)(nil)

// NewWeaviate creates a Weaviate gateway for the configured collection.
func NewWeaviate(cfg WeaviateConfig) *Weaviate {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Weaviate{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (w *Weaviate) applyHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if w.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)
	}
}

// doJSON performs one JSON request. Non-2xx responses become errors carrying
// the response body.
func (w *Weaviate) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, w.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	w.applyHeaders(req)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weaviate request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("weaviate %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// collectionExists checks for the class via the schema endpoint.
func (w *Weaviate) collectionExists(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/v1/schema/"+w.cfg.Collection, nil)
	if err != nil {
		return false, err
	}
	w.applyHeaders(req)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("checking collection: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("checking collection: status %d", resp.StatusCode)
	}
}

// EnsureCollection creates the class when missing. With fresh set, an
// existing class is dropped first so re-ingestion starts from nothing.
func (w *Weaviate) EnsureCollection(ctx context.Context, fresh bool) error {
	exists, err := w.collectionExists(ctx)
	if err != nil {
		return err
	}

	if exists {
		if !fresh {
			return nil
		}
		if err := w.deleteCollection(ctx); err != nil {
			return err
		}
		slog.Info("dropped existing collection", "collection", w.cfg.Collection)
	}

	schema := map[string]any{
		"class":      w.cfg.Collection,
		"vectorizer": "text2vec-weaviate",
		"properties": []map[string]any{
			{"name": "text_chunk", "dataType": []string{"text"}},
			{"name": "source_file", "dataType": []string{"text"}},
		},
	}
	if err := w.doJSON(ctx, http.MethodPost, "/v1/schema", schema, nil); err != nil {
		return fmt.Errorf("creating collection %s: %w", w.cfg.Collection, err)
	}
	slog.Info("collection created", "collection", w.cfg.Collection)
	return nil
}

func (w *Weaviate) deleteCollection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, w.baseURL+"/v1/schema/"+w.cfg.Collection, nil)
	if err != nil {
		return err
	}
	w.applyHeaders(req)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("deleting collection: status %d", resp.StatusCode)
	}
	return nil
}

// batchObject is one element of a POST /v1/batch/objects request.
type batchObject struct {
	Class      string `json:"class"`
	Properties Record `json:"properties"`
}

// Insert stores records in one batch call. Any per-object error in the
// batch response fails the whole insert with ErrInsert; Weaviate applies
// objects independently, so the caller must treat a failed batch as
// partially applied and re-ingest.
func (w *Weaviate) Insert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	objects := make([]batchObject, len(records))
	for i, r := range records {
		objects[i] = batchObject{Class: w.cfg.Collection, Properties: r}
	}

	var resp []struct {
		Result struct {
			Errors *struct {
				Error []struct {
					Message string `json:"message"`
				} `json:"error"`
			} `json:"errors"`
		} `json:"result"`
	}
	if err := w.doJSON(ctx, http.MethodPost, "/v1/batch/objects", map[string]any{"objects": objects}, &resp); err != nil {
		return fmt.Errorf("%w: %w", ErrInsert, err)
	}

	failed := 0
	firstMsg := ""
	for _, r := range resp {
		if r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			failed++
			if firstMsg == "" {
				firstMsg = r.Result.Errors.Error[0].Message
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d objects rejected: %s", ErrInsert, failed, len(records), firstMsg)
	}

	slog.Debug("batch insert complete", "collection", w.cfg.Collection, "records", len(records))
	return nil
}

// SearchNearest runs a nearText GraphQL query and returns the matched text
// chunks in ranking order. An empty result set is not an error.
func (w *Weaviate) SearchNearest(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}

	graphql := fmt.Sprintf(`{
		Get {
			%s(
				nearText: { concepts: ["%s"] }
				limit: %d
			) {
				text_chunk
				source_file
			}
		}
	}`, w.cfg.Collection, escapeGraphQLString(query), limit)

	var resp struct {
		Data struct {
			Get map[string][]struct {
				TextChunk string `json:"text_chunk"`
			} `json:"Get"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := w.doJSON(ctx, http.MethodPost, "/v1/graphql", map[string]any{"query": graphql}, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrQuery, resp.Errors[0].Message)
	}

	hits := resp.Data.Get[w.cfg.Collection]
	chunks := make([]string, 0, len(hits))
	for _, h := range hits {
		chunks = append(chunks, h.TextChunk)
	}
	return chunks, nil
}

// DeleteBySource removes every object whose source_file equals sourceFile
// via the batch delete endpoint, which reports matched/successful/failed
// counts. A source with no objects matches zero and is not an error.
func (w *Weaviate) DeleteBySource(ctx context.Context, sourceFile string) (DeleteResult, error) {
	body := map[string]any{
		"match": map[string]any{
			"class": w.cfg.Collection,
			"where": map[string]any{
				"path":      []string{"source_file"},
				"operator":  "Equal",
				"valueText": sourceFile,
			},
		},
		"output": "minimal",
	}

	var resp struct {
		Results struct {
			Matched    int `json:"matched"`
			Successful int `json:"successful"`
			Failed     int `json:"failed"`
		} `json:"results"`
	}
	if err := w.doJSON(ctx, http.MethodDelete, "/v1/batch/objects", body, &resp); err != nil {
		return DeleteResult{}, fmt.Errorf("deleting by source %s: %w", sourceFile, err)
	}

	return DeleteResult{
		Matched:   resp.Results.Matched,
		Succeeded: resp.Results.Successful,
		Failed:    resp.Results.Failed,
	}, nil
}

// escapeGraphQLString escapes a string for embedding in a GraphQL query.
func escapeGraphQLString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
