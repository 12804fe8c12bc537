package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sentinel answers returned when generation cannot produce a grounded
// result. Callers always receive a well-formed Result.
const (
	noInfoAnswer = "I could not find any relevant information to answer your question."
	errorAnswer  = "Sorry, I encountered an error while generating the answer."
	formatAnswer = "I received an unexpected response format from the language model."
)

// Completer produces a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Result is a structured answer with its cited sources. Answer is always
// present; Sources may be empty but never nil.
type Result struct {
	Answer  string           `json:"answer"`
	Sources []map[string]any `json:"sources"`
}

const promptTemplate = `CONTEXT:
---
%s
---
Based ONLY on the context provided above, answer the following question. Do not use any other information.

Respond with a single JSON object of the form {"answer": string, "sources": array of objects} and nothing else.

QUESTION: %s`

// Generator turns retrieved context and a question into a Result.
type Generator struct {
	completer Completer
	logger    *slog.Logger
}

// NewGenerator creates a Generator backed by the given model client.
func NewGenerator(completer Completer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{completer: completer, logger: logger}
}

// Generate asks the model to answer the question from the supplied context
// chunks. It never returns an error: every failure mode degrades to a
// sentinel Result. With no context the upstream model is not called at all.
func (g *Generator) Generate(ctx context.Context, contextChunks []string, question string) Result {
	if len(contextChunks) == 0 {
		return Result{Answer: noInfoAnswer, Sources: []map[string]any{}}
	}

	prompt := fmt.Sprintf(promptTemplate, strings.Join(contextChunks, "\n"), question)
	raw, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		g.logger.Error("answer generation failed", "error", err)
		return Result{Answer: errorAnswer, Sources: []map[string]any{}}
	}

	result, err := parseModelOutput(raw)
	if err != nil {
		g.logger.Warn("model output needed recovery", "error", err)
	}
	return result
}
