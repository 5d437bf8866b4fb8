package extract

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"meralcocli/pkg/contracts/domain"
)

// suggestNearestHeaders finds, for each missing field, the header cell
// whose wording sits closest to the field's expected terms. Meant for
// the error message when a layout is rejected: a misspelled or
// re-worded column ("generacion charge") shows up next to the field it
// probably was.
func suggestNearestHeaders(missing []domain.CanonicalField, headerCells []string) []Suggestion {
	var suggestions []Suggestion
	for _, field := range missing {
		terms := ruleTerms(field)
		if len(terms) == 0 {
			continue
		}

		bestDist := -1
		bestCell := ""
		for _, cell := range headerCells {
			normalized := normalizeHeaderText(cell)
			if normalized == "" {
				continue
			}
			if _, mapped := matchColumnRule(normalized); mapped {
				continue
			}
			for _, term := range terms {
				d := nearestTokenDistance(term, normalized)
				if bestDist == -1 || d < bestDist {
					bestDist = d
					bestCell = strings.TrimSpace(cell)
				}
			}
		}

		if bestCell != "" && withinSuggestionRange(bestDist, terms) {
			suggestions = append(suggestions, Suggestion{Field: field, Header: bestCell})
		}
	}
	return suggestions
}

// ruleTerms returns every term the rule table would accept for a field.
func ruleTerms(field domain.CanonicalField) []string {
	for _, rule := range columnRules {
		if rule.field != field {
			continue
		}
		var terms []string
		for _, group := range rule.anyOf {
			terms = append(terms, group...)
		}
		return terms
	}
	return nil
}

// nearestTokenDistance measures how far a term is from a header cell,
// taking the best of whole-cell distance and per-token distance so
// "generacion charge" still lands near "generation".
func nearestTokenDistance(term, normalizedCell string) int {
	best := fuzzy.LevenshteinDistance(term, normalizedCell)
	for _, token := range strings.Fields(normalizedCell) {
		if d := fuzzy.LevenshteinDistance(term, token); d < best {
			best = d
		}
	}
	return best
}

// withinSuggestionRange keeps only plausible near-misses. A quarter of
// the shortest term's length (minimum one edit) tolerates typos without
// suggesting unrelated columns.
func withinSuggestionRange(dist int, terms []string) bool {
	if dist < 0 {
		return false
	}
	shortest := len(terms[0])
	for _, t := range terms[1:] {
		if len(t) < shortest {
			shortest = len(t)
		}
	}
	limit := shortest / 4
	if limit < 1 {
		limit = 1
	}
	return dist <= limit
}
