package extractor

import (
	"github.com/overwatch/retrace/internal/logger"
	"github.com/overwatch/retrace/internal/record"
)

// Discard is the tagged outcome for a raw record that failed validation.
// Discards are values, not errors: one bad record never affects the others
// and nothing propagates past this stage.
type Discard struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ValidateRecords filters and normalizes parsed records independently,
// preserving input order. Per-record failures are logged and collected as
// discards.
func ValidateRecords(raws []record.Raw) ([]record.MissingPerson, []Discard) {
	valid := make([]record.MissingPerson, 0, len(raws))
	var discards []Discard

	for i, raw := range raws {
		p, err := record.FromRaw(raw)
		if err != nil {
			logger.Warn("discarding record", "index", i, "reason", err)
			discards = append(discards, Discard{Index: i, Reason: err.Error()})
			continue
		}
		valid = append(valid, p)
	}

	return valid, discards
}
