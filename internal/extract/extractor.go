// Package extract canonicalizes the residential rate table out of
// Meralco's monthly summary schedule PDFs. The table's position,
// column count and column order drift month to month, so nothing here
// assumes fixed offsets: the header row is located by keyword scoring,
// columns are mapped by wording, and rows are canonicalized through the
// resolved mapping.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"meralcocli/internal/pdf"
	"meralcocli/pkg/contracts/domain"
)

// Options tunes the extractor.
type Options struct {
	// HeaderDepth caps how many consecutive rows merge into one header
	// when the table stacks its column titles vertically.
	HeaderDepth int

	// MaxFailureRatio sets the row failure budget: the document is
	// rejected when failed rows exceed ratio * parsed rows. 1.0 means
	// failures may not outnumber successes.
	MaxFailureRatio float64
}

const (
	defaultHeaderDepth     = 2
	defaultMaxFailureRatio = 1.0
)

// Extraction is the outcome of one document: canonical records plus
// the layout they were read through and the row accounting used for
// the failure-budget check.
type Extraction struct {
	Records   []domain.RateBracketRecord
	Mapping   *domain.ColumnMapping
	Signature domain.LayoutSignature

	RowsParsed   int
	RowsSkipped  int
	RowsFailed   int
	PagesScanned int
}

// Extractor runs the locate → map → canonicalize pipeline over page
// grids.
type Extractor struct {
	opts   Options
	logger *slog.Logger
}

// NewExtractor builds an extractor, clamping options to sane bounds.
func NewExtractor(opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HeaderDepth < 1 || opts.HeaderDepth > 4 {
		opts.HeaderDepth = defaultHeaderDepth
	}
	if opts.MaxFailureRatio <= 0 {
		opts.MaxFailureRatio = defaultMaxFailureRatio
	}
	return &Extractor{opts: opts, logger: logger}
}

// ExtractResidentialRates walks the page grids and returns every
// canonical bracket record up to the end of the residential section.
//
// Pages before the table (covers, notices) fail header location and are
// skipped. Once rows have been parsed, the first page without a header
// (or a GENERAL SERVICE row) ends the document. Individual bad rows
// are logged and counted; the document only fails as a whole when the
// failures outnumber the successes, when a page disagrees with the
// layout of the first, or when the recovered brackets are out of order.
func (e *Extractor) ExtractResidentialRates(ctx context.Context, grids []pdf.Grid) (*Extraction, error) {
	ext := &Extraction{}
	var bestHeaderErr *HeaderNotFoundError

	for pageIdx, grid := range grids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if grid.IsEmpty() {
			continue
		}

		headerIdx, err := LocateHeader(headerWindow(grid))
		if err != nil {
			if ext.RowsParsed > 0 {
				// The table ended on an earlier page.
				break
			}
			var hnf *HeaderNotFoundError
			if errors.As(err, &hnf) && (bestHeaderErr == nil || hnf.BestScore > bestHeaderErr.BestScore) {
				bestHeaderErr = hnf
			}
			e.logger.Debug("no header on page", slog.Int("page", pageIdx+1))
			continue
		}

		depth := e.headerDepth(grid, headerIdx)
		mapping, err := MapColumns(grid.MergedHeader(headerIdx, depth))
		if err != nil {
			return nil, err
		}
		if ext.Mapping == nil {
			ext.Mapping = mapping
			ext.Signature = mapping.Signature()
			e.logger.Debug("layout resolved",
				slog.Int("page", pageIdx+1),
				slog.Int("header_row", headerIdx),
				slog.Int("columns", mapping.Len()),
				slog.String("signature", string(ext.Signature)))
		} else if mapping.Signature() != ext.Signature {
			return nil, &UnsupportedLayoutError{
				Reason: fmt.Sprintf("page %d layout disagrees with the first table page", pageIdx+1),
			}
		}

		ext.PagesScanned++
		if e.scanDataRows(ext, grid, headerIdx+depth, pageIdx+1) {
			break
		}
	}

	if ext.Mapping == nil {
		if bestHeaderErr != nil {
			return nil, bestHeaderErr
		}
		return nil, &HeaderNotFoundError{}
	}
	if ext.RowsFailed > 0 && float64(ext.RowsFailed) > e.opts.MaxFailureRatio*float64(ext.RowsParsed) {
		return nil, &UnsupportedLayoutError{
			Reason: fmt.Sprintf("%d of %d data rows failed to parse", ext.RowsFailed, ext.RowsFailed+ext.RowsParsed),
		}
	}
	if len(ext.Records) == 0 {
		return nil, &UnsupportedLayoutError{Reason: "no residential rate rows found"}
	}
	if err := validateBracketOrder(ext.Records); err != nil {
		return nil, err
	}

	e.logger.Info("extraction complete",
		slog.Int("brackets", len(ext.Records)),
		slog.Int("rows_parsed", ext.RowsParsed),
		slog.Int("rows_skipped", ext.RowsSkipped),
		slog.Int("rows_failed", ext.RowsFailed),
		slog.String("signature", string(ext.Signature)))
	return ext, nil
}

// scanDataRows canonicalizes the rows below the header and reports
// whether the residential section ended on this page.
func (e *Extractor) scanDataRows(ext *Extraction, grid pdf.Grid, start, page int) bool {
	bracketCol, _ := ext.Mapping.Column(domain.FieldConsumptionBracket)
	for ri := start; ri < grid.NumRows(); ri++ {
		cells := grid.Row(ri)
		if rowBlank(cells) {
			ext.RowsSkipped++
			continue
		}
		if IsStopRow(cells, bracketCol) {
			return true
		}
		rec, err := CanonicalizeRow(ext.Mapping, cells, ri)
		if err != nil {
			ext.RowsFailed++
			e.logger.Warn("row rejected",
				slog.Int("page", page),
				slog.Int("row", ri),
				slog.String("error", err.Error()))
			continue
		}
		if rec == nil {
			ext.RowsSkipped++
			continue
		}
		ext.Records = append(ext.Records, *rec)
		ext.RowsParsed++
	}
	return false
}

// headerDepth decides how many rows belong to the header, stopping
// early when the next row already looks like data so single-row headers
// never swallow their first bracket.
func (e *Extractor) headerDepth(grid pdf.Grid, headerIdx int) int {
	depth := 1
	for d := 1; d < e.opts.HeaderDepth; d++ {
		ri := headerIdx + d
		if ri >= grid.NumRows() || rowLooksLikeData(grid.Row(ri)) {
			break
		}
		depth++
	}
	return depth
}

func headerWindow(grid pdf.Grid) [][]string {
	n := grid.NumRows()
	if n > headerScanRows {
		n = headerScanRows
	}
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		rows[i] = grid.Row(i)
	}
	return rows
}

func rowLooksLikeData(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	text := cleanCellText(cells[0])
	if _, _, ok := ParseBracket(text); ok {
		return true
	}
	return strings.HasPrefix(strings.ToUpper(text), stopMarker)
}

func rowBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// validateBracketOrder enforces the published invariant: brackets are
// monotonically ascending, never overlap, and only the last may be
// unbounded.
func validateBracketOrder(records []domain.RateBracketRecord) error {
	for i := 1; i < len(records); i++ {
		prev, cur := &records[i-1], &records[i]
		if prev.MaxKWh == nil {
			return &UnsupportedLayoutError{
				Reason: fmt.Sprintf("unbounded bracket %q is not the last bracket", prev.ConsumptionBracket),
			}
		}
		if cur.MinKWh <= *prev.MaxKWh {
			return &UnsupportedLayoutError{
				Reason: fmt.Sprintf("brackets %q and %q overlap or are out of order", prev.ConsumptionBracket, cur.ConsumptionBracket),
			}
		}
	}
	return nil
}
