package exporter

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"meralcocli/pkg/contracts/domain"
)

// flatRow is one bracket flattened for tabular output. Nested subsidy
// objects become dotted columns and the document metadata repeats on
// every row, so the file stays a valid flat table that can be filtered
// or joined without reassembling the payload.
//
// Absent charges serialize as empty cells, never zero, and an unbounded
// max_kwh is likewise an empty cell.
type flatRow struct {
	Period             string `csv:"period"`
	ConsumptionBracket string `csv:"consumption_bracket"`
	MinKWh             int64  `csv:"min_kwh"`
	MaxKWh             string `csv:"max_kwh"`

	GenerationCharge   string `csv:"generation_charge"`
	TransmissionCharge string `csv:"transmission_charge"`
	SystemLossCharge   string `csv:"system_loss_charge"`
	DistributionCharge string `csv:"distribution_charge"`
	SupplyCharge       string `csv:"supply_charge"`
	MeteringCharge     string `csv:"metering_charge"`

	AWATCharge                    string `csv:"awat_charge"`
	RegulatoryResetFeesAdjustment string `csv:"regulatory_reset_fees_adjustment"`
	OneTimeResetFeeAdjustment     string `csv:"one_time_reset_fee_adjustment"`
	CurrentRPTCharge              string `csv:"current_rpt_charge"`

	LifelineRateSubsidy      string `csv:"lifeline.rate_subsidy_per_kwh"`
	LifelineDiscountPercent  string `csv:"lifeline.applicable_discount_percent"`
	SeniorCitizenRateSubsidy string `csv:"senior_citizen_subsidy.rate_subsidy_per_kwh"`

	UCMeNPCSPUG string `csv:"uc_me_npc_spug"`
	UCMeRedCI   string `csv:"uc_me_red_ci"`
	UCEC        string `csv:"uc_ec"`
	UCSD        string `csv:"uc_sd"`
	FITAll      string `csv:"fit_all"`
	GEAAll      string `csv:"gea_all"`

	SourcePDFURL         string `csv:"source_pdf_url"`
	SourceItemURL        string `csv:"source_item_url"`
	PDFSHA256            string `csv:"pdf_sha256"`
	TableLayoutSignature string `csv:"table_layout_signature"`
	FetchedAt            string `csv:"fetched_at"`
	ParserVersion        string `csv:"parser_version"`
}

func decimalCell(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func flattenRecord(period domain.Period, meta domain.ProvenanceMetadata, rec *domain.RateBracketRecord) *flatRow {
	row := &flatRow{
		Period:             period.String(),
		ConsumptionBracket: rec.ConsumptionBracket,
		MinKWh:             rec.MinKWh,

		GenerationCharge:   decimalCell(rec.GenerationCharge),
		TransmissionCharge: decimalCell(rec.TransmissionCharge),
		SystemLossCharge:   decimalCell(rec.SystemLossCharge),
		DistributionCharge: decimalCell(rec.DistributionCharge),
		SupplyCharge:       decimalCell(rec.SupplyCharge),
		MeteringCharge:     decimalCell(rec.MeteringCharge),

		AWATCharge:                    decimalCell(rec.AWATCharge),
		RegulatoryResetFeesAdjustment: decimalCell(rec.RegulatoryResetFeesAdjustment),
		OneTimeResetFeeAdjustment:     decimalCell(rec.OneTimeResetFeeAdjustment),
		CurrentRPTCharge:              decimalCell(rec.CurrentRPTCharge),

		UCMeNPCSPUG: decimalCell(rec.UCMeNPCSPUG),
		UCMeRedCI:   decimalCell(rec.UCMeRedCI),
		UCEC:        decimalCell(rec.UCEC),
		UCSD:        decimalCell(rec.UCSD),
		FITAll:      decimalCell(rec.FITAll),
		GEAAll:      decimalCell(rec.GEAAll),

		SourcePDFURL:         meta.SourcePDFURL,
		SourceItemURL:        meta.SourceItemURL,
		PDFSHA256:            meta.PDFSHA256,
		TableLayoutSignature: string(meta.TableLayoutSignature),
		FetchedAt:            meta.FetchedAt.Format(time.RFC3339),
		ParserVersion:        meta.ParserVersion,
	}
	if rec.MaxKWh != nil {
		row.MaxKWh = fmt.Sprintf("%d", *rec.MaxKWh)
	}
	if rec.Lifeline != nil {
		row.LifelineRateSubsidy = decimalCell(rec.Lifeline.RateSubsidyPerKWh)
		row.LifelineDiscountPercent = decimalCell(rec.Lifeline.ApplicableDiscountPercent)
	}
	if rec.SeniorCitizen != nil {
		row.SeniorCitizenRateSubsidy = decimalCell(rec.SeniorCitizen.RateSubsidyPerKWh)
	}
	return row
}

func flattenPayloads(payloads []domain.RatesPayload) []*flatRow {
	var rows []*flatRow
	for i := range payloads {
		p := &payloads[i]
		for j := range p.Rates {
			rows = append(rows, flattenRecord(p.Period, p.Metadata, &p.Rates[j]))
		}
	}
	return rows
}

// WriteCSV writes one row per bracket across all payloads. A UTF-8 BOM
// prefixes the output so Excel opens it cleanly.
func WriteCSV(w io.Writer, payloads []domain.RatesPayload) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}
	rows := flattenPayloads(payloads)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	return nil
}
