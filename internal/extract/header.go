package extract

import "strings"

// Header location is a scored scan, not a fixed offset: Meralco moves
// the table start around between months as title and footnote rows come
// and go.
const (
	// headerScanRows bounds the scan window from the top of the page.
	headerScanRows = 4
	// headerMinKeywords is the minimum distinct keyword count for a row
	// to qualify as the header.
	headerMinKeywords = 3
)

// headerKeywords are charge-name fragments that only ever appear
// together on the header row itself.
var headerKeywords = []string{
	"generation",
	"transmission",
	"system loss",
	"distribution",
	"supply",
	"metering",
	"fit all",
}

// LocateHeader scans the first few rows of a page grid and returns the
// index of the row containing the residential table header. Rows are
// scored by how many distinct keywords they contain; the best row wins
// and ties go to the earliest. A best score below the minimum returns
// HeaderNotFoundError.
func LocateHeader(rows [][]string) (int, error) {
	limit := len(rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}

	bestIdx, bestScore := -1, 0
	for i := 0; i < limit; i++ {
		if score := headerScore(rows[i]); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 || bestScore < headerMinKeywords {
		return 0, &HeaderNotFoundError{RowsScanned: limit, BestScore: bestScore}
	}
	return bestIdx, nil
}

// headerScore counts distinct header keywords across the whole row. The
// cells are joined first so a keyword split across adjacent cells by
// the grid recovery still counts once.
func headerScore(cells []string) int {
	joined := normalizeHeaderText(strings.Join(cells, " "))
	if joined == "" {
		return 0
	}
	score := 0
	for _, kw := range headerKeywords {
		if strings.Contains(joined, kw) {
			score++
		}
	}
	return score
}
