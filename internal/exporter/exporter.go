package exporter

import (
	"fmt"
	"io"

	"meralcocli/pkg/contracts/domain"
)

// WritePayload encodes a single month's payload.
func WritePayload(w io.Writer, payload *domain.RatesPayload, format Format, pretty bool) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, payload, pretty)
	case FormatCSV:
		return WriteCSV(w, []domain.RatesPayload{*payload})
	case FormatXLSX:
		return WriteXLSX(w, []domain.RatesPayload{*payload})
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteReport encodes a backfill run. JSON carries the full report
// including the failure list; the tabular formats carry only the
// successful documents, since failures have no bracket rows to sit in
// and are reported on stderr and through the exit status instead.
func WriteReport(w io.Writer, report *domain.BackfillReport, format Format, pretty bool) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, report, pretty)
	case FormatCSV:
		return WriteCSV(w, report.Documents)
	case FormatXLSX:
		return WriteXLSX(w, report.Documents)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
