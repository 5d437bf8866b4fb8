package exporter

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON encodes v (a payload or a backfill report) to w. pretty
// switches on two-space indentation for terminals; piped output stays
// compact.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
