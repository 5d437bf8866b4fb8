// Package pdf recovers tabular cell grids from rate schedule PDFs. It
// validates documents with pdfcpu, then rebuilds rows and columns from
// ledongthuc/pdf positioned text fragments: fragments sharing a
// baseline become a row, horizontal gaps split the row into cells.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"meralcocli/pkg/contracts/domain"
)

// Geometry thresholds, in PDF points. Tuned against the Meralco summary
// schedule layout: baselines jitter under a point, column gutters run
// well past four.
const (
	defaultYTolerance = 2.0
	defaultCellGap    = 4.0
	defaultWordGap    = 1.0
	maxDocumentBytes  = 32 << 20
)

// CellExtractor turns a fetched document into per-page cell grids.
type CellExtractor interface {
	ExtractGrids(ctx context.Context, doc *domain.RateDocument) ([]Grid, error)
}

// TextExtractor is the production CellExtractor.
type TextExtractor struct {
	logger               *slog.Logger
	yTolerance           float64
	cellGap              float64
	wordGap              float64
	skipPDFCPUValidation bool // set only by tests feeding synthetic bytes
}

// NewTextExtractor builds an extractor with default geometry.
func NewTextExtractor(logger *slog.Logger) *TextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextExtractor{
		logger:     logger,
		yTolerance: defaultYTolerance,
		cellGap:    defaultCellGap,
		wordGap:    defaultWordGap,
	}
}

// ExtractGrids validates the document and recovers one Grid per page.
// Pages without text yield empty grids so page numbering stays aligned
// for logging.
func (e *TextExtractor) ExtractGrids(ctx context.Context, doc *domain.RateDocument) ([]Grid, error) {
	if doc == nil || len(doc.Raw) == 0 {
		return nil, fmt.Errorf("empty pdf document")
	}
	if len(doc.Raw) > maxDocumentBytes {
		return nil, fmt.Errorf("pdf document too large: %d bytes", len(doc.Raw))
	}
	if !e.skipPDFCPUValidation {
		pages, err := e.validate(doc.Raw)
		if err != nil {
			return nil, fmt.Errorf("pdf validation failed for %s: %w", doc.SourceURL, err)
		}
		e.logger.Debug("pdf validated",
			slog.String("period", doc.Period.String()),
			slog.Int("pages", pages),
			slog.Int("bytes", len(doc.Raw)))
	}

	reader, err := pdf.NewReader(bytes.NewReader(doc.Raw), int64(len(doc.Raw)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	grids := make([]Grid, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			grids = append(grids, NewGrid(nil))
			continue
		}
		rows := e.buildRows(page.Content().Text)
		e.logger.Debug("page grid built", slog.Int("page", i), slog.Int("rows", len(rows)))
		grids = append(grids, NewGrid(rows))
	}
	return grids, nil
}

// validate round-trips the bytes through pdfcpu in relaxed mode. The
// library only works on files, so the bytes take a detour through a
// temp file.
func (e *TextExtractor) validate(raw []byte) (int, error) {
	tmp, err := os.CreateTemp("", "meralco-rates-*.pdf")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}

	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(tmp.Name(), cfg); err != nil {
		return 0, err
	}
	pages, err := api.PageCountFile(tmp.Name())
	if err != nil {
		return 0, err
	}
	if pages == 0 {
		return 0, fmt.Errorf("pdf has no pages")
	}
	return pages, nil
}

type textRow struct {
	y     float64
	texts []pdf.Text
}

// buildRows clusters positioned fragments into rows by baseline, then
// splits each row into cells wherever the horizontal gap exceeds the
// column gutter threshold.
func (e *TextExtractor) buildRows(texts []pdf.Text) [][]string {
	var rows []*textRow
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		var row *textRow
		for _, r := range rows {
			if t.Y >= r.y-e.yTolerance && t.Y <= r.y+e.yTolerance {
				row = r
				break
			}
		}
		if row == nil {
			row = &textRow{y: t.Y}
			rows = append(rows, row)
		}
		row.texts = append(row.texts, t)
	}

	// PDF user space runs bottom-up; the table reads top-down.
	sort.Slice(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, e.splitCells(r.texts))
	}
	return out
}

func (e *TextExtractor) splitCells(texts []pdf.Text) []string {
	sort.Slice(texts, func(i, j int) bool { return texts[i].X < texts[j].X })

	var cells []string
	var cell strings.Builder
	prevEnd := 0.0
	for i, t := range texts {
		if i > 0 {
			gap := t.X - prevEnd
			switch {
			case gap > e.cellGap:
				cells = append(cells, strings.TrimSpace(cell.String()))
				cell.Reset()
			case gap > e.wordGap:
				cell.WriteString(" ")
			}
		}
		cell.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	if cell.Len() > 0 {
		cells = append(cells, strings.TrimSpace(cell.String()))
	}
	return cells
}
