package answer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrFormat reports model output that was not the expected JSON shape.
var ErrFormat = errors.New("unexpected answer format")

// sanitize strips the decorations models wrap around JSON output:
// surrounding whitespace and markdown code fences. Nothing inside the
// fences is altered.
func sanitize(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// parseModelOutput recovers a Result from raw model text. Parse failures
// never surface to the caller as errors on their own: an unparsable reply
// becomes the answer verbatim, and a parsable reply missing the answer key
// becomes a sentinel. The returned error (wrapping ErrFormat) exists for
// logging only and always accompanies a usable Result.
func parseModelOutput(raw string) (Result, error) {
	cleaned := sanitize(raw)

	var payload struct {
		Answer  *string          `json:"answer"`
		Sources []map[string]any `json:"sources"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return Result{Answer: cleaned, Sources: []map[string]any{}},
			fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if payload.Answer == nil {
		return Result{Answer: formatAnswer, Sources: []map[string]any{}},
			fmt.Errorf("%w: missing answer key", ErrFormat)
	}

	sources := payload.Sources
	if sources == nil {
		sources = []map[string]any{}
	}
	return Result{Answer: *payload.Answer, Sources: sources}, nil
}
