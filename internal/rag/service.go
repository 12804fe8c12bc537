// Package rag composes vector search and answer generation into the single
// query entry point consumed by the serving layer.
package rag

import (
	"context"
	"log/slog"

	"github.com/docquery/docquery/internal/answer"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// Searcher is the retrieval half of the vector store gateway.
type Searcher interface {
	SearchNearest(ctx context.Context, query string, limit int) ([]string, error)
}

// Generator turns retrieved context and a question into a Result.
type Generator interface {
	Generate(ctx context.Context, contextChunks []string, question string) answer.Result
}

// Service answers questions from the document index.
type Service struct {
	store     Searcher
	generator Generator
	topK      int
	logger    *slog.Logger
}

// NewService creates a Service retrieving topK chunks per question.
// topK <= 0 selects DefaultTopK.
func NewService(store Searcher, generator Generator, topK int) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{
		store:     store,
		generator: generator,
		topK:      topK,
		logger:    slog.Default(),
	}
}

// AnswerQuery retrieves context for the question and generates a grounded
// answer. It never returns an error: a failed search degrades to an empty
// context, which the generator resolves to its no-information sentinel.
func (s *Service) AnswerQuery(ctx context.Context, question string) answer.Result {
	chunks, err := s.store.SearchNearest(ctx, question, s.topK)
	if err != nil {
		s.logger.Error("retrieval failed", "error", err)
		chunks = nil
	}
	return s.generator.Generate(ctx, chunks, question)
}
