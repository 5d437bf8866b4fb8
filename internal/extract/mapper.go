package extract

import (
	"meralcocli/pkg/contracts/domain"
)

// MapColumns resolves a merged header row into a validated column
// mapping. Every header cell is normalized and run through the keyword
// rule table; cells with no recognized wording stay unmapped. The
// mapping is rejected when a canonical field matches twice or when any
// of the six core charges is missing.
//
// The bracket column is special: layouts rarely label it with anything
// the rules recognize, so when nothing matched it and nothing else
// claimed column 0, column 0 is taken as the bracket column. Every
// published layout to date keeps the consumption bracket on the left
// edge of the table.
func MapColumns(headerCells []string) (*domain.ColumnMapping, error) {
	assignments := make([]domain.ColumnAssignment, 0, len(headerCells))
	seen := make(map[domain.CanonicalField]int, len(headerCells))

	for col, cell := range headerCells {
		text := normalizeHeaderText(cell)
		if text == "" {
			continue
		}
		field, ok := matchColumnRule(text)
		if !ok {
			continue
		}
		if prev, dup := seen[field]; dup {
			return nil, &AmbiguousColumnError{Field: field, FirstColumn: prev, SecondColumn: col}
		}
		seen[field] = col
		assignments = append(assignments, domain.ColumnAssignment{Column: col, Field: field})
	}

	if _, ok := seen[domain.FieldConsumptionBracket]; !ok {
		if _, taken := fieldAtColumn(assignments, 0); !taken {
			seen[domain.FieldConsumptionBracket] = 0
			assignments = append(assignments, domain.ColumnAssignment{Column: 0, Field: domain.FieldConsumptionBracket})
		}
	}

	var missing []domain.CanonicalField
	if _, ok := seen[domain.FieldConsumptionBracket]; !ok {
		missing = append(missing, domain.FieldConsumptionBracket)
	}
	for _, f := range domain.CoreChargeFields() {
		if _, ok := seen[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &UnsupportedLayoutError{
			Missing:     missing,
			Suggestions: suggestNearestHeaders(missing, headerCells),
		}
	}

	return domain.NewColumnMapping(assignments)
}

func fieldAtColumn(assignments []domain.ColumnAssignment, col int) (domain.CanonicalField, bool) {
	for _, a := range assignments {
		if a.Column == col {
			return a.Field, true
		}
	}
	return "", false
}
