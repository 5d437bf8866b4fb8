// Package exporter encodes canonical residential-rate payloads for
// consumption outside the pipeline.
//
// Three encodings are supported:
//
// JSON: mirrors the payload structure exactly, including provenance
// metadata and the failure list of a backfill report. Decimal charges
// are emitted as bare numbers and unbounded brackets as null max_kwh.
//
// CSV: flattens every bracket into one row, repeating the month's
// metadata on each. Subsidy blocks use dotted column names such as
// lifeline.rate_subsidy_per_kwh. Output starts with a UTF-8 BOM so
// Excel detects the encoding.
//
// XLSX: the same flat table written to a "Residential Rates" sheet.
//
// Example usage:
//
//	format, err := exporter.ParseFormat("csv")
//	if err != nil {
//		return err
//	}
//	err = exporter.WritePayload(os.Stdout, payload, format, false)
//
//	// Backfill runs carry many months plus their failures.
//	err = exporter.WriteReport(f, report, exporter.FormatJSON, true)
package exporter
