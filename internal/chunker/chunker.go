// Package chunker splits text into overlapping word windows for use as
// retrieval units. It is a pure, standalone primitive: the ingestion
// pipeline stores page-level prose as-is by default and applies this
// chunker only when a caller opts in to size-bounded records.
package chunker

import "strings"

const (
	// DefaultWindow is the chunk size in words.
	DefaultWindow = 300
	// DefaultOverlap is the number of words shared between consecutive chunks.
	DefaultOverlap = 50
)

// Chunk splits text into successive windows of `window` words, advancing by
// window-overlap words per step. Words are whitespace-separated; each chunk
// is the windowed words rejoined with single spaces, so original spacing is
// not preserved. Empty or whitespace-only input yields nil.
//
// Degenerate parameters are clamped rather than rejected: window <= 0 falls
// back to DefaultWindow, negative overlap to zero, and overlap >= window to
// window/6 (the default 300/50 ratio). Without the clamp the window would
// never advance.
func Chunk(text string, window, overlap int) []string {
	if window <= 0 {
		window = DefaultWindow
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= window {
		overlap = window / 6
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	step := window - overlap
	for start := 0; start < len(words); start += step {
		end := start + window
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
