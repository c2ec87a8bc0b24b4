package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/overwatch/retrace/internal/record"
)

// ErrMalformedOutput reports model output that could not be decoded into
// records. It is an extraction-level failure eligible for retry.
var ErrMalformedOutput = errors.New("malformed model output")

// ParseResponse decodes raw model output into a sequence of raw records.
// Fenced code blocks (optionally tagged "json") are stripped before
// decoding. The payload may be a bare JSON array or the structured-output
// wrapper object {"records": [...]}.
func ParseResponse(text string) ([]record.Raw, error) {
	payload := stripFence(strings.TrimSpace(text))
	if payload == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}

	var records []record.Raw
	if err := json.Unmarshal([]byte(payload), &records); err == nil && records != nil {
		return records, nil
	}

	var wrapped struct {
		Records []record.Raw `json:"records"`
	}
	if err := json.Unmarshal([]byte(payload), &wrapped); err != nil || wrapped.Records == nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedOutput, truncateForError(payload))
	}
	return wrapped.Records, nil
}

// stripFence removes one surrounding fenced code block, including an
// optional language tag on the opening fence.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")

	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

// truncateForError truncates content for error messages.
func truncateForError(s string) string {
	if len(s) <= 200 {
		return s
	}
	return s[:200] + "..."
}
