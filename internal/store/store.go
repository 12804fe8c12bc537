// Package store defines the vector store gateway: the capability surface the
// ingestion pipeline and retrieval orchestrator depend on, with a Weaviate
// backend (server-side text vectorization over REST/GraphQL) and a local
// SQLite backend (client-side embeddings, brute-force cosine search).
package store

import (
	"context"
	"errors"
)

// Record is the unit persisted and retrieved: a prose chunk or a
// markdown-rendered table, tagged with its originating document.
type Record struct {
	TextChunk  string `json:"text_chunk"`
	SourceFile string `json:"source_file"`
}

// DeleteResult reports the outcome of a delete-by-source operation.
// Deleting a source that does not exist is not an error: Matched is 0.
type DeleteResult struct {
	Matched   int `json:"matched"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

var (
	// ErrQuery marks a failed similarity search (transport or auth), as
	// opposed to a search that simply found nothing, which returns an
	// empty result and no error.
	ErrQuery = errors.New("vector search failed")

	// ErrInsert marks a partially or fully failed batch insert. Partial
	// failures are always reported, never silently dropped.
	ErrInsert = errors.New("batch insert failed")
)

// Gateway is the capability surface required of any vector store backend.
// Implementations make a single attempt per call; retries and timeouts are
// the caller's concern via ctx.
type Gateway interface {
	// EnsureCollection creates the collection if it does not exist and is
	// otherwise a no-op. With fresh set, an existing collection is deleted
	// and recreated, discarding its contents.
	EnsureCollection(ctx context.Context, fresh bool) error

	// Insert stores records as one batch. A partial failure returns an
	// error wrapping ErrInsert.
	Insert(ctx context.Context, records []Record) error

	// SearchNearest returns up to limit text chunks ranked by semantic
	// similarity to query. No matches yields an empty slice, not an error;
	// transport failures wrap ErrQuery.
	SearchNearest(ctx context.Context, query string, limit int) ([]string, error)

	// DeleteBySource removes every record originating from sourceFile.
	// Idempotent: a source with no records yields Matched == 0.
	DeleteBySource(ctx context.Context, sourceFile string) (DeleteResult, error)
}
