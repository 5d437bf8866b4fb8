package pdf

import (
	"context"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meralcocli/pkg/contracts/domain"
)

func TestGridRaggedAccess(t *testing.T) {
	g := NewGrid([][]string{
		{"CUSTOMER CLASS", "GENERATION", "TRANSMISSION"},
		{"0 TO 20 KWH", "5.1234"},
		{},
	})

	assert.Equal(t, 3, g.NumRows())
	assert.False(t, g.IsEmpty())

	assert.Equal(t, "5.1234", g.Cell(1, 1))
	assert.Equal(t, "", g.Cell(1, 2), "short row reads as empty, not panic")
	assert.Equal(t, "", g.Cell(2, 0))
	assert.Equal(t, "", g.Cell(9, 0))
	assert.Equal(t, "", g.Cell(0, -1))
	assert.Nil(t, g.Row(5))

	empty := NewGrid(nil)
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, "", empty.Cell(0, 0))
}

func TestGridMergedHeader(t *testing.T) {
	g := NewGrid([][]string{
		{"", "GENERATION", "TRANSMISSION", "SYSTEM LOSS"},
		{"CUSTOMER CLASS", "CHARGE", "CHARGE", "CHARGE"},
		{"0 TO 20 KWH", "5.1234", "0.6543", "0.9876"},
	})

	merged := g.MergedHeader(0, 2)
	require.Len(t, merged, 4)
	assert.Equal(t, "CUSTOMER CLASS", merged[0])
	assert.Equal(t, "GENERATION CHARGE", merged[1])
	assert.Equal(t, "TRANSMISSION CHARGE", merged[2])
	assert.Equal(t, "SYSTEM LOSS CHARGE", merged[3])

	single := g.MergedHeader(2, 1)
	assert.Equal(t, []string{"0 TO 20 KWH", "5.1234", "0.6543", "0.9876"}, single)

	assert.Nil(t, g.MergedHeader(-1, 2))
	assert.Nil(t, g.MergedHeader(5, 2))
	assert.Nil(t, g.MergedHeader(0, 0))

	// Depth past the last row is clamped, not an error.
	clamped := g.MergedHeader(2, 5)
	require.Len(t, clamped, 4)
	assert.Equal(t, "0 TO 20 KWH", clamped[0])
}

func TestBuildRowsClustersBaselines(t *testing.T) {
	e := NewTextExtractor(nil)

	// Two visual rows; the second has a fragment 1.5pt off-baseline
	// which must still land in the same row.
	texts := []pdf.Text{
		{S: "GENERATION", X: 100, Y: 700, W: 50},
		{S: "CUSTOMER CLASS", X: 10, Y: 700, W: 60},
		{S: "5.1234", X: 102, Y: 680, W: 28},
		{S: "0 TO 20 KWH", X: 10, Y: 681.5, W: 52},
		{S: "   ", X: 200, Y: 680, W: 5},
	}

	rows := e.buildRows(texts)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"CUSTOMER CLASS", "GENERATION"}, rows[0])
	assert.Equal(t, []string{"0 TO 20 KWH", "5.1234"}, rows[1])
}

func TestSplitCellsGapThresholds(t *testing.T) {
	e := NewTextExtractor(nil)

	texts := []pdf.Text{
		// "SYSTEM" and "LOSS" sit a word-space apart: one cell.
		{S: "SYSTEM", X: 10, Y: 700, W: 30},
		{S: "LOSS", X: 42, Y: 700, W: 20},
		// Column gutter: new cell.
		{S: "5.1234", X: 120, Y: 700, W: 28},
		// Fragments butted together re-join without a space.
		{S: "0.65", X: 200, Y: 700, W: 18},
		{S: "43", X: 218.2, Y: 700, W: 9},
	}

	cells := e.splitCells(texts)
	require.Len(t, cells, 3)
	assert.Equal(t, "SYSTEM LOSS", cells[0])
	assert.Equal(t, "5.1234", cells[1])
	assert.Equal(t, "0.6543", cells[2])
}

func TestExtractGridsRejectsEmptyDocument(t *testing.T) {
	e := NewTextExtractor(nil)
	ctx := context.Background()

	_, err := e.ExtractGrids(ctx, nil)
	require.Error(t, err)

	_, err = e.ExtractGrids(ctx, &domain.RateDocument{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty pdf")
}
