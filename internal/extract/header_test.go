package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateHeader(t *testing.T) {
	tests := []struct {
		name      string
		rows      [][]string
		wantIdx   int
		wantErr   bool
		wantScore int
	}{
		{
			name: "header on first row",
			rows: [][]string{
				{"CUSTOMER CLASS", "GENERATION CHARGE", "TRANSMISSION CHARGE", "SYSTEM LOSS CHARGE"},
				{"0 TO 20 KWH", "5.1234", "0.6543", "0.9876"},
			},
			wantIdx: 0,
		},
		{
			name: "header after title and date rows",
			rows: [][]string{
				{"SUMMARY SCHEDULE OF RATES"},
				{"FOR THE JUNE 2025 BILLING PERIOD"},
				{"CUSTOMER CLASS", "GENERATION", "TRANSMISSION", "DISTRIBUTION", "SUPPLY", "METERING"},
				{"", "CHARGE", "CHARGE", "CHARGE", "CHARGE", "CHARGE"},
			},
			wantIdx: 2,
		},
		{
			name: "keywords split across adjacent cells still score",
			rows: [][]string{
				{"SYSTEM", "LOSS", "GENERATION", "TRANSMISSION"},
			},
			wantIdx: 0,
		},
		{
			name: "best scoring row wins over weaker candidate",
			rows: [][]string{
				{"GENERATION RATES NOTICE", "SUPPLY UPDATE", "TRANSMISSION NEWS"},
				{"CUSTOMER CLASS", "GENERATION", "TRANSMISSION", "SYSTEM LOSS", "DISTRIBUTION", "SUPPLY", "METERING"},
			},
			wantIdx: 1,
		},
		{
			name: "tie goes to the earliest row",
			rows: [][]string{
				{"GENERATION", "TRANSMISSION", "SUPPLY"},
				{"GENERATION", "TRANSMISSION", "SUPPLY"},
			},
			wantIdx: 0,
		},
		{
			name: "no qualifying row",
			rows: [][]string{
				{"SUMMARY SCHEDULE OF RATES"},
				{"RESIDENTIAL CUSTOMERS"},
				{"GENERATION ONLY MENTIONED HERE"},
			},
			wantErr:   true,
			wantScore: 1,
		},
		{
			name:      "empty page",
			rows:      nil,
			wantErr:   true,
			wantScore: 0,
		},
		{
			name: "header beyond the scan window is not found",
			rows: [][]string{
				{"COVER"},
				{"COVER"},
				{"COVER"},
				{"COVER"},
				{"CUSTOMER CLASS", "GENERATION", "TRANSMISSION", "SYSTEM LOSS", "DISTRIBUTION"},
			},
			wantErr:   true,
			wantScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := LocateHeader(tt.rows)
			if tt.wantErr {
				require.Error(t, err)
				var hnf *HeaderNotFoundError
				require.True(t, errors.As(err, &hnf))
				assert.Equal(t, tt.wantScore, hnf.BestScore)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIdx, idx)
		})
	}
}

func TestHeaderScoreCountsDistinctKeywords(t *testing.T) {
	// Repeats of one keyword must not inflate the score.
	assert.Equal(t, 1, headerScore([]string{"GENERATION", "GENERATION", "GENERATION"}))
	assert.Equal(t, 0, headerScore([]string{"", "  "}))
	assert.Equal(t, 7, headerScore([]string{
		"GENERATION", "TRANSMISSION", "SYSTEM LOSS", "DISTRIBUTION", "SUPPLY", "METERING", "FIT ALL",
	}))
}

func TestNormalizeHeaderText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GENERATION\nCHARGE", "generation charge"},
		{"Generation Charge (P/kWh)", "generation charge p kwh"},
		{"  SYSTEM   LOSS  ", "system loss"},
		{"FIT-ALL", "fit all"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeHeaderText(tt.in))
	}
}
