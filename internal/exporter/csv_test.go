package exporter

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meralcocli/pkg/contracts/domain"
)

// readCSV strips the BOM and parses the remainder, returning header and
// data rows separately.
func readCSV(t *testing.T, raw []byte) ([]string, [][]string) {
	t.Helper()

	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "output must start with a UTF-8 BOM")
	r := csv.NewReader(bytes.NewReader(raw[3:]))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	return rows[0], rows[1:]
}

func TestWriteCSV_HeaderRow(t *testing.T) {
	payload := samplePayload(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []domain.RatesPayload{payload}))

	header, _ := readCSV(t, buf.Bytes())
	assert.Equal(t, xlsxHeaders, header, "CSV and XLSX column layouts must stay identical")

	// The nested subsidy objects flatten to dotted names.
	assert.Contains(t, header, "lifeline.rate_subsidy_per_kwh")
	assert.Contains(t, header, "lifeline.applicable_discount_percent")
	assert.Contains(t, header, "senior_citizen_subsidy.rate_subsidy_per_kwh")
}

func TestWriteCSV_FlattensBrackets(t *testing.T) {
	payload := samplePayload(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []domain.RatesPayload{payload}))

	header, rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 2)

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %q not in header", name)
		return -1
	}

	first, second := rows[0], rows[1]

	// Document metadata repeats on every row.
	for _, row := range rows {
		assert.Equal(t, "2025-06", row[col("period")])
		assert.Equal(t, strings.Repeat("ab", 32), row[col("pdf_sha256")])
		assert.Equal(t, "deadbeefdeadbeef", row[col("table_layout_signature")])
		assert.Equal(t, "2025-06-12T08:30:00Z", row[col("fetched_at")])
		assert.Equal(t, "v3_generic", row[col("parser_version")])
	}

	assert.Equal(t, "0 TO 200 KWH", first[col("consumption_bracket")])
	assert.Equal(t, "0", first[col("min_kwh")])
	assert.Equal(t, "200", first[col("max_kwh")])
	assert.Equal(t, "5.1234", first[col("generation_charge")])
	assert.Equal(t, "-0.1476", first[col("lifeline.rate_subsidy_per_kwh")])
	assert.Equal(t, "20", first[col("lifeline.applicable_discount_percent")])

	assert.Equal(t, "OVER 400 KWH", second[col("consumption_bracket")])
	assert.Equal(t, "401", second[col("min_kwh")])
	assert.Equal(t, "", second[col("max_kwh")], "unbounded bracket stays empty, not zero")
	assert.Equal(t, "-0.0415", second[col("awat_charge")])
	assert.Equal(t, "-0.0021", second[col("senior_citizen_subsidy.rate_subsidy_per_kwh")])

	// Absent charges are empty cells; zero would misstate the source.
	assert.Equal(t, "", second[col("transmission_charge")])
	assert.Equal(t, "", second[col("lifeline.rate_subsidy_per_kwh")])
	assert.Equal(t, "", first[col("awat_charge")])
}

func TestWriteCSV_MultiplePayloads(t *testing.T) {
	june := samplePayload(t)
	july := samplePayload(t)
	july.Period = domain.NewPeriod(2025, time.July)
	july.Rates = july.Rates[:1]

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []domain.RatesPayload{june, july}))

	header, rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 3)

	periodCol := -1
	for i, h := range header {
		if h == "period" {
			periodCol = i
		}
	}
	require.NotEqual(t, -1, periodCol)
	assert.Equal(t, "2025-06", rows[0][periodCol])
	assert.Equal(t, "2025-06", rows[1][periodCol])
	assert.Equal(t, "2025-07", rows[2][periodCol])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	header, rows := readCSV(t, buf.Bytes())
	assert.Equal(t, xlsxHeaders, header)
	assert.Empty(t, rows)
}
