package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meralcocli/pkg/contracts/domain"
)

func TestParseBracket(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantMin int64
		wantMax int64 // -1 means unbounded
		wantOK  bool
	}{
		{name: "closed range", text: "21 TO 50 KWH", wantMin: 21, wantMax: 50, wantOK: true},
		{name: "zero lower bound", text: "0 TO 20 KWH", wantMin: 0, wantMax: 20, wantOK: true},
		{name: "lowercase units", text: "201 to 300 kwh", wantMin: 201, wantMax: 300, wantOK: true},
		{name: "thousands separators", text: "1,001 TO 1,500 KWH", wantMin: 1001, wantMax: 1500, wantOK: true},
		{name: "trailing footnote marker", text: "401 TO 500 KWH *", wantMin: 401, wantMax: 500, wantOK: true},
		{name: "over bracket is exclusive of its bound", text: "OVER 900 KWH", wantMin: 901, wantMax: -1, wantOK: true},
		{name: "over with separator", text: "OVER 1,000 KWH", wantMin: 1001, wantMax: -1, wantOK: true},
		{name: "section label", text: "RESIDENTIAL", wantOK: false},
		{name: "subtotal row", text: "TOTAL", wantOK: false},
		{name: "empty", text: "", wantOK: false},
		{name: "missing units", text: "21 TO 50", wantOK: false},
		{name: "embedded match does not count", text: "SEE 21 TO 50 KWH NOTE", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMin, gotMax, ok := ParseBracket(tt.text)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantMin, gotMin)
			if tt.wantMax == -1 {
				assert.Nil(t, gotMax, "open-ended bracket must have nil max")
			} else {
				require.NotNil(t, gotMax)
				assert.Equal(t, tt.wantMax, *gotMax)
			}
		})
	}
}

func TestParseRateCell(t *testing.T) {
	tests := []struct {
		name    string
		cell    string
		percent bool
		want    string // "" means absent
		wantErr bool
	}{
		{name: "plain", cell: "5.1234", want: "5.1234"},
		{name: "surrounding whitespace", cell: "  0.6543  ", want: "0.6543"},
		{name: "thousands separator", cell: "7,409.00", want: "7409"},
		{name: "accounting negative", cell: "(0.1425)", want: "-0.1425"},
		{name: "minus sign negative", cell: "-0.1425", want: "-0.1425"},
		{name: "currency prefix", cell: "P0.1234", want: "0.1234"},
		{name: "spelled currency prefix", cell: "PhP 0.1234", want: "0.1234"},
		{name: "negative with currency", cell: "(P1.2345)", want: "-1.2345"},
		{name: "currency outside parentheses", cell: "P(0.123)", want: "-0.123"},
		{name: "intra-cell line break", cell: "0.12\n34", want: "0.1234"},
		{name: "percent stripped on discount column", cell: "100%", percent: true, want: "100"},
		{name: "blank is absent", cell: "", want: ""},
		{name: "dash is absent", cell: " - ", want: ""},
		{name: "em dash is absent", cell: "—", want: ""},
		{name: "not applicable is absent", cell: "N/A", want: ""},
		{name: "percent on a rate column is garbage", cell: "100%", wantErr: true},
		{name: "words are garbage", cell: "TBD", wantErr: true},
		{name: "double decimal point is garbage", cell: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRateCell(tt.cell, tt.percent)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, got, "expected absent value")
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func testMapping(t *testing.T) *domain.ColumnMapping {
	t.Helper()
	m, err := domain.NewColumnMapping([]domain.ColumnAssignment{
		{Column: 0, Field: domain.FieldConsumptionBracket},
		{Column: 1, Field: domain.FieldGenerationCharge},
		{Column: 2, Field: domain.FieldTransmissionCharge},
		{Column: 3, Field: domain.FieldLifelineRateSubsidy},
		{Column: 4, Field: domain.FieldApplicableDiscountPercent},
	})
	require.NoError(t, err)
	return m
}

func TestCanonicalizeRow(t *testing.T) {
	mapping := testMapping(t)

	t.Run("complete row", func(t *testing.T) {
		rec, err := CanonicalizeRow(mapping, []string{"21 TO 50 KWH", "5.1234", "(0.0123)", "-0.5", "50%"}, 7)
		require.NoError(t, err)
		require.NotNil(t, rec)

		assert.Equal(t, "21 TO 50 KWH", rec.ConsumptionBracket)
		assert.Equal(t, int64(21), rec.MinKWh)
		require.NotNil(t, rec.MaxKWh)
		assert.Equal(t, int64(50), *rec.MaxKWh)
		assert.Equal(t, "5.1234", rec.GenerationCharge.String())
		assert.Equal(t, "-0.0123", rec.TransmissionCharge.String())
		require.NotNil(t, rec.Lifeline)
		assert.Equal(t, "-0.5", rec.Lifeline.RateSubsidyPerKWh.String())
		assert.Equal(t, "50", rec.Lifeline.ApplicableDiscountPercent.String())
	})

	t.Run("absent cell stays absent, not zero", func(t *testing.T) {
		rec, err := CanonicalizeRow(mapping, []string{"0 TO 20 KWH", "5.1234", "N/A", "", "-"}, 3)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Nil(t, rec.TransmissionCharge)
		assert.Nil(t, rec.Lifeline, "no lifeline columns parsed, no lifeline object")

		_, ok := rec.Charge(domain.FieldTransmissionCharge)
		assert.False(t, ok)
	})

	t.Run("ragged row reads missing cells as absent", func(t *testing.T) {
		rec, err := CanonicalizeRow(mapping, []string{"OVER 900 KWH", "5.6069"}, 12)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.True(t, rec.Unbounded())
		assert.Equal(t, int64(901), rec.MinKWh)
		assert.NotNil(t, rec.GenerationCharge)
		assert.Nil(t, rec.TransmissionCharge)
	})

	t.Run("footnote row is skipped, not failed", func(t *testing.T) {
		rec, err := CanonicalizeRow(mapping, []string{"* RATES ARE VAT EXCLUSIVE", "", ""}, 20)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("blank bracket is skipped", func(t *testing.T) {
		rec, err := CanonicalizeRow(mapping, []string{"", "5.1234", "0.6543"}, 21)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("garbage numeric cell fails the row", func(t *testing.T) {
		rec, err := CanonicalizeRow(mapping, []string{"21 TO 50 KWH", "garbled", "0.6543"}, 9)
		require.Error(t, err)
		assert.Nil(t, rec)

		var rowErr *RowParseError
		require.True(t, errors.As(err, &rowErr))
		assert.Equal(t, 9, rowErr.Row)
		assert.Equal(t, 1, rowErr.Column)
		assert.Equal(t, domain.FieldGenerationCharge, rowErr.Field)
		assert.Equal(t, "garbled", rowErr.Cell)
	})

	t.Run("inverted bracket bounds fail the row", func(t *testing.T) {
		_, err := CanonicalizeRow(mapping, []string{"50 TO 21 KWH", "5.1234", "0.6543"}, 4)
		require.Error(t, err)

		var rowErr *RowParseError
		require.True(t, errors.As(err, &rowErr))
		assert.Equal(t, domain.FieldConsumptionBracket, rowErr.Field)
	})
}

func TestIsStopRow(t *testing.T) {
	assert.True(t, IsStopRow([]string{"GENERAL SERVICE (GS)", "5.1"}, 0))
	assert.True(t, IsStopRow([]string{"general service"}, 0))
	assert.False(t, IsStopRow([]string{"0 TO 20 KWH", "5.1"}, 0))
	assert.False(t, IsStopRow([]string{""}, 0))
	assert.False(t, IsStopRow(nil, 0))
}
