package pdf

import "strings"

// Grid is the raw cell matrix recovered from one PDF page. Rows are
// ragged: merged header cells, spanned footnotes and trailing blanks
// all produce rows of different widths, and accessors tolerate that
// instead of forcing callers to bounds-check.
type Grid struct {
	rows [][]string
}

// NewGrid wraps a raw row matrix.
func NewGrid(rows [][]string) Grid {
	return Grid{rows: rows}
}

// NumRows reports the number of rows on the page.
func (g Grid) NumRows() int {
	return len(g.rows)
}

// Row returns the cells of one row, or nil when the index is out of
// range.
func (g Grid) Row(i int) []string {
	if i < 0 || i >= len(g.rows) {
		return nil
	}
	return g.rows[i]
}

// Cell returns the trimmed cell at (row, col), or "" when either index
// falls outside the ragged matrix.
func (g Grid) Cell(row, col int) string {
	r := g.Row(row)
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// IsEmpty reports whether the page produced no rows at all.
func (g Grid) IsEmpty() bool {
	return len(g.rows) == 0
}

// MergedHeader flattens depth consecutive rows starting at start into a
// single header row by joining the vertically stacked fragments of each
// column. Multi-line headers ("GENERATION" over "CHARGE") read as one
// phrase afterwards.
func (g Grid) MergedHeader(start, depth int) []string {
	if start < 0 || start >= len(g.rows) || depth < 1 {
		return nil
	}
	end := start + depth
	if end > len(g.rows) {
		end = len(g.rows)
	}
	width := 0
	for i := start; i < end; i++ {
		if len(g.rows[i]) > width {
			width = len(g.rows[i])
		}
	}
	merged := make([]string, width)
	for col := 0; col < width; col++ {
		var parts []string
		for i := start; i < end; i++ {
			if cell := g.Cell(i, col); cell != "" {
				parts = append(parts, cell)
			}
		}
		merged[col] = strings.Join(parts, " ")
	}
	return merged
}
