package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"meralcocli/pkg/contracts/domain"
)

// xlsxSheetName is the single sheet the workbook carries.
const xlsxSheetName = "Residential Rates"

// xlsxHeaders is the column order of the workbook, kept identical to
// the CSV layout so the two formats stay interchangeable.
var xlsxHeaders = []string{
	"period", "consumption_bracket", "min_kwh", "max_kwh",
	"generation_charge", "transmission_charge", "system_loss_charge",
	"distribution_charge", "supply_charge", "metering_charge",
	"awat_charge", "regulatory_reset_fees_adjustment",
	"one_time_reset_fee_adjustment", "current_rpt_charge",
	"lifeline.rate_subsidy_per_kwh", "lifeline.applicable_discount_percent",
	"senior_citizen_subsidy.rate_subsidy_per_kwh",
	"uc_me_npc_spug", "uc_me_red_ci", "uc_ec", "uc_sd", "fit_all", "gea_all",
	"source_pdf_url", "source_item_url", "pdf_sha256",
	"table_layout_signature", "fetched_at", "parser_version",
}

// WriteXLSX writes the flattened payloads as an Excel workbook with one
// row per bracket.
func WriteXLSX(w io.Writer, payloads []domain.RatesPayload) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(xlsxSheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for col, header := range xlsxHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(xlsxSheetName, cell, header); err != nil {
			return fmt.Errorf("write header %s: %w", header, err)
		}
	}

	for i, row := range flattenPayloads(payloads) {
		values := []any{
			row.Period, row.ConsumptionBracket, row.MinKWh, row.MaxKWh,
			row.GenerationCharge, row.TransmissionCharge, row.SystemLossCharge,
			row.DistributionCharge, row.SupplyCharge, row.MeteringCharge,
			row.AWATCharge, row.RegulatoryResetFeesAdjustment,
			row.OneTimeResetFeeAdjustment, row.CurrentRPTCharge,
			row.LifelineRateSubsidy, row.LifelineDiscountPercent,
			row.SeniorCitizenRateSubsidy,
			row.UCMeNPCSPUG, row.UCMeRedCI, row.UCEC, row.UCSD, row.FITAll, row.GEAAll,
			row.SourcePDFURL, row.SourceItemURL, row.PDFSHA256,
			row.TableLayoutSignature, row.FetchedAt, row.ParserVersion,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(xlsxSheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", i+2, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
