package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"meralcocli/pkg/contracts/domain"
)

var (
	bracketRangePattern = regexp.MustCompile(`(?i)^(\d[\d,]*)\s*TO\s*(\d[\d,]*)\s*KWH`)
	bracketOverPattern  = regexp.MustCompile(`(?i)^OVER\s*(\d[\d,]*)\s*KWH`)
)

// stopMarker begins the section after the residential table. Once the
// bracket column reads GENERAL SERVICE the residential rows are over
// and everything below belongs to another customer class.
const stopMarker = "GENERAL SERVICE"

// absentTokens are the placeholders layouts use for "no value this
// month". They canonicalize to an absent field, never to zero.
var absentTokens = map[string]bool{
	"":     true,
	"-":    true,
	"--":   true,
	"–":    true,
	"—":    true,
	"n/a":  true,
	"na":   true,
	"n.a":  true,
	"n.a.": true,
}

// ParseBracket decodes consumption bracket text into kWh bounds.
// "21 TO 50 KWH" gives [21, 50]; "OVER 900 KWH" gives [901, unbounded)
// since the wording is exclusive of 900 itself. Text matching neither
// shape reports ok=false: those rows are footnotes or other sections,
// not data.
func ParseBracket(text string) (minKWh int64, maxKWh *int64, ok bool) {
	text = strings.TrimSpace(text)
	if m := bracketRangePattern.FindStringSubmatch(text); m != nil {
		lo, err1 := parseKWhBound(m[1])
		hi, err2 := parseKWhBound(m[2])
		if err1 != nil || err2 != nil {
			return 0, nil, false
		}
		return lo, &hi, true
	}
	if m := bracketOverPattern.FindStringSubmatch(text); m != nil {
		n, err := parseKWhBound(m[1])
		if err != nil {
			return 0, nil, false
		}
		return n + 1, nil, true
	}
	return 0, nil, false
}

func parseKWhBound(s string) (int64, error) {
	return strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
}

// parseRateCell canonicalizes one numeric table cell. Absent markers
// give (nil, nil); accounting-negative "(0.1234)" gives the negated
// value; anything else unparseable is a real error the caller turns
// into a RowParseError.
func parseRateCell(raw string, percent bool) (*decimal.Decimal, error) {
	s := cleanCellText(raw)
	if absentTokens[strings.ToLower(s)] {
		return nil, nil
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if percent {
		s = strings.ReplaceAll(s, "%", "")
	}

	// Currency markers and accounting parentheses nest either way:
	// "(P0.1234)" and "P(0.1234)" both mean -0.1234.
	s = stripCurrencyPrefix(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
		s = stripCurrencyPrefix(s)
	}
	if s == "" {
		return nil, nil
	}

	value, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("not a number")
	}
	if negative {
		value = value.Neg()
	}
	return &value, nil
}

// stripCurrencyPrefix removes the peso markers layouts scatter around
// values: "P0.1234", "PhP0.1234", "₱0.1234".
func stripCurrencyPrefix(s string) string {
	upper := strings.ToUpper(s)
	for _, prefix := range []string{"PHP", "P", "₱"} {
		if strings.HasPrefix(upper, prefix) {
			return s[len(prefix):]
		}
	}
	return s
}

// cleanCellText flattens intra-cell line breaks and collapses runs of
// whitespace.
func cleanCellText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.Join(strings.Fields(s), " ")
}

// cellAt reads a cell from a ragged row, empty when out of range.
func cellAt(cells []string, col int) string {
	if col < 0 || col >= len(cells) {
		return ""
	}
	return cells[col]
}

// IsStopRow reports whether the bracket column announces the section
// that follows the residential table.
func IsStopRow(cells []string, bracketCol int) bool {
	text := strings.ToUpper(cleanCellText(cellAt(cells, bracketCol)))
	return strings.HasPrefix(text, stopMarker)
}

// CanonicalizeRow turns one raw table row into a canonical bracket
// record using the resolved column mapping.
//
// A (nil, nil) return means the row carries no bracket and is skipped:
// blank separators, footnotes and subtotal rows all land here. A
// non-nil error means the row looked like data but would not parse; the
// caller counts it against the document's failure budget. The first bad
// cell fails the whole row so a partially trusted record never leaks
// downstream.
func CanonicalizeRow(mapping *domain.ColumnMapping, cells []string, rowIdx int) (*domain.RateBracketRecord, error) {
	bracketCol, ok := mapping.Column(domain.FieldConsumptionBracket)
	if !ok {
		return nil, &UnsupportedLayoutError{Missing: []domain.CanonicalField{domain.FieldConsumptionBracket}}
	}

	bracketText := cleanCellText(cellAt(cells, bracketCol))
	if bracketText == "" {
		return nil, nil
	}
	minKWh, maxKWh, ok := ParseBracket(bracketText)
	if !ok {
		return nil, nil
	}
	if maxKWh != nil && *maxKWh < minKWh {
		return nil, &RowParseError{
			Row:    rowIdx,
			Column: bracketCol,
			Field:  domain.FieldConsumptionBracket,
			Cell:   bracketText,
			Err:    fmt.Errorf("bracket upper bound below lower bound"),
		}
	}

	rec := &domain.RateBracketRecord{
		ConsumptionBracket: bracketText,
		MinKWh:             minKWh,
		MaxKWh:             maxKWh,
	}

	for _, a := range mapping.Assignments() {
		if a.Field == domain.FieldConsumptionBracket {
			continue
		}
		raw := cellAt(cells, a.Column)
		value, err := parseRateCell(raw, a.Field == domain.FieldApplicableDiscountPercent)
		if err != nil {
			return nil, &RowParseError{Row: rowIdx, Column: a.Column, Field: a.Field, Cell: cleanCellText(raw), Err: err}
		}
		if value == nil {
			continue
		}
		if err := rec.SetCharge(a.Field, *value); err != nil {
			return nil, &RowParseError{Row: rowIdx, Column: a.Column, Field: a.Field, Cell: cleanCellText(raw), Err: err}
		}
	}
	return rec, nil
}
