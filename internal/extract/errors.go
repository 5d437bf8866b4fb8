package extract

import (
	"fmt"
	"strings"

	"meralcocli/pkg/contracts/domain"
)

// HeaderNotFoundError means no row in the scan window scored enough
// header keywords. Typical causes: a scanned-image PDF, or a page that
// simply does not carry the residential table.
type HeaderNotFoundError struct {
	RowsScanned int
	BestScore   int
}

func (e *HeaderNotFoundError) Error() string {
	return fmt.Sprintf("header row not found: best score %d across %d scanned rows (need %d keywords)",
		e.BestScore, e.RowsScanned, headerMinKeywords)
}

// AmbiguousColumnError means two raw columns matched the same canonical
// field. Publishing either one silently would risk shipping the wrong
// number, so the document is rejected instead.
type AmbiguousColumnError struct {
	Field        domain.CanonicalField
	FirstColumn  int
	SecondColumn int
}

func (e *AmbiguousColumnError) Error() string {
	return fmt.Sprintf("ambiguous layout: columns %d and %d both map to %s",
		e.FirstColumn, e.SecondColumn, e.Field)
}

// Suggestion pairs a missing canonical field with the header text that
// came closest to its expected wording. Diagnostics only; suggestions
// never feed back into the mapping.
type Suggestion struct {
	Field  domain.CanonicalField
	Header string
}

// UnsupportedLayoutError means the document as a whole cannot be
// canonicalized: mandatory columns are missing, or row failures drowned
// out the successes, or the recovered brackets are inconsistent.
type UnsupportedLayoutError struct {
	Missing     []domain.CanonicalField
	Reason      string
	Suggestions []Suggestion
}

func (e *UnsupportedLayoutError) Error() string {
	if len(e.Missing) > 0 {
		names := make([]string, len(e.Missing))
		for i, f := range e.Missing {
			names[i] = string(f)
		}
		msg := fmt.Sprintf("unsupported layout: missing mandatory columns [%s]", strings.Join(names, ", "))
		if len(e.Suggestions) > 0 {
			hints := make([]string, len(e.Suggestions))
			for i, s := range e.Suggestions {
				hints[i] = fmt.Sprintf("%s ~ %q", s.Field, s.Header)
			}
			msg += fmt.Sprintf(" (nearest headers: %s)", strings.Join(hints, ", "))
		}
		return msg
	}
	return fmt.Sprintf("unsupported layout: %s", e.Reason)
}

// RowParseError means one data row failed to canonicalize. Row errors
// are recoverable: the extractor logs them, counts them and moves on,
// escalating only when they outnumber the parsed rows.
type RowParseError struct {
	Row    int
	Column int
	Field  domain.CanonicalField
	Cell   string
	Err    error
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("row %d column %d (%s): cannot parse %q: %v",
		e.Row, e.Column, e.Field, e.Cell, e.Err)
}

func (e *RowParseError) Unwrap() error {
	return e.Err
}
