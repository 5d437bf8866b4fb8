package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Rates serialize as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// LifelineSubsidy carries the lifeline discount program columns. Both
// members are optional because layouts publish them independently.
type LifelineSubsidy struct {
	RateSubsidyPerKWh         *decimal.Decimal `json:"rate_subsidy_per_kwh,omitempty"`
	ApplicableDiscountPercent *decimal.Decimal `json:"applicable_discount_percent,omitempty"`
}

// SeniorCitizenSubsidy carries the senior citizen discount column.
type SeniorCitizenSubsidy struct {
	RateSubsidyPerKWh *decimal.Decimal `json:"rate_subsidy_per_kwh,omitempty"`
}

// RateBracketRecord is one canonicalized row of the residential rate
// table: a consumption bracket plus every charge the layout published
// for it. Nil charge pointers mean the column was absent or blank in
// the source document, which is not the same thing as a zero rate.
type RateBracketRecord struct {
	ConsumptionBracket string `json:"consumption_bracket" validate:"required"`
	MinKWh             int64  `json:"min_kwh" validate:"min=0"`
	// MaxKWh is nil for open-ended brackets ("OVER 900 KWH") and is
	// always emitted, as null, so consumers can tell unbounded apart
	// from unknown.
	MaxKWh *int64 `json:"max_kwh"`

	GenerationCharge   *decimal.Decimal `json:"generation_charge,omitempty"`
	TransmissionCharge *decimal.Decimal `json:"transmission_charge,omitempty"`
	SystemLossCharge   *decimal.Decimal `json:"system_loss_charge,omitempty"`
	DistributionCharge *decimal.Decimal `json:"distribution_charge,omitempty"`
	SupplyCharge       *decimal.Decimal `json:"supply_charge,omitempty"`
	MeteringCharge     *decimal.Decimal `json:"metering_charge,omitempty"`

	AWATCharge                    *decimal.Decimal `json:"awat_charge,omitempty"`
	RegulatoryResetFeesAdjustment *decimal.Decimal `json:"regulatory_reset_fees_adjustment,omitempty"`
	OneTimeResetFeeAdjustment     *decimal.Decimal `json:"one_time_reset_fee_adjustment,omitempty"`
	CurrentRPTCharge              *decimal.Decimal `json:"current_rpt_charge,omitempty"`

	Lifeline      *LifelineSubsidy      `json:"lifeline,omitempty"`
	SeniorCitizen *SeniorCitizenSubsidy `json:"senior_citizen_subsidy,omitempty"`

	UCMeNPCSPUG *decimal.Decimal `json:"uc_me_npc_spug,omitempty"`
	UCMeRedCI   *decimal.Decimal `json:"uc_me_red_ci,omitempty"`
	UCEC        *decimal.Decimal `json:"uc_ec,omitempty"`
	UCSD        *decimal.Decimal `json:"uc_sd,omitempty"`
	FITAll      *decimal.Decimal `json:"fit_all,omitempty"`
	GEAAll      *decimal.Decimal `json:"gea_all,omitempty"`
}

// Unbounded reports whether the bracket has no upper kWh limit.
func (r *RateBracketRecord) Unbounded() bool {
	return r.MaxKWh == nil
}

// SetCharge stores a parsed value under its canonical field, allocating
// the subsidy sub-objects on demand.
func (r *RateBracketRecord) SetCharge(field CanonicalField, value decimal.Decimal) error {
	v := value
	switch field {
	case FieldGenerationCharge:
		r.GenerationCharge = &v
	case FieldTransmissionCharge:
		r.TransmissionCharge = &v
	case FieldSystemLossCharge:
		r.SystemLossCharge = &v
	case FieldDistributionCharge:
		r.DistributionCharge = &v
	case FieldSupplyCharge:
		r.SupplyCharge = &v
	case FieldMeteringCharge:
		r.MeteringCharge = &v
	case FieldAWATCharge:
		r.AWATCharge = &v
	case FieldRegulatoryResetFeesAdjustment:
		r.RegulatoryResetFeesAdjustment = &v
	case FieldOneTimeResetFeeAdjustment:
		r.OneTimeResetFeeAdjustment = &v
	case FieldCurrentRPTCharge:
		r.CurrentRPTCharge = &v
	case FieldLifelineRateSubsidy:
		if r.Lifeline == nil {
			r.Lifeline = &LifelineSubsidy{}
		}
		r.Lifeline.RateSubsidyPerKWh = &v
	case FieldApplicableDiscountPercent:
		if r.Lifeline == nil {
			r.Lifeline = &LifelineSubsidy{}
		}
		r.Lifeline.ApplicableDiscountPercent = &v
	case FieldSeniorCitizenSubsidy:
		if r.SeniorCitizen == nil {
			r.SeniorCitizen = &SeniorCitizenSubsidy{}
		}
		r.SeniorCitizen.RateSubsidyPerKWh = &v
	case FieldUCMeNPCSPUG:
		r.UCMeNPCSPUG = &v
	case FieldUCMeRedCI:
		r.UCMeRedCI = &v
	case FieldUCEC:
		r.UCEC = &v
	case FieldUCSD:
		r.UCSD = &v
	case FieldFITAll:
		r.FITAll = &v
	case FieldGEAAll:
		r.GEAAll = &v
	default:
		return fmt.Errorf("unknown canonical field %q", field)
	}
	return nil
}

// Charge looks a stored value back up by its canonical field. The
// second return is false when the column was absent.
func (r *RateBracketRecord) Charge(field CanonicalField) (decimal.Decimal, bool) {
	var p *decimal.Decimal
	switch field {
	case FieldGenerationCharge:
		p = r.GenerationCharge
	case FieldTransmissionCharge:
		p = r.TransmissionCharge
	case FieldSystemLossCharge:
		p = r.SystemLossCharge
	case FieldDistributionCharge:
		p = r.DistributionCharge
	case FieldSupplyCharge:
		p = r.SupplyCharge
	case FieldMeteringCharge:
		p = r.MeteringCharge
	case FieldAWATCharge:
		p = r.AWATCharge
	case FieldRegulatoryResetFeesAdjustment:
		p = r.RegulatoryResetFeesAdjustment
	case FieldOneTimeResetFeeAdjustment:
		p = r.OneTimeResetFeeAdjustment
	case FieldCurrentRPTCharge:
		p = r.CurrentRPTCharge
	case FieldLifelineRateSubsidy:
		if r.Lifeline != nil {
			p = r.Lifeline.RateSubsidyPerKWh
		}
	case FieldApplicableDiscountPercent:
		if r.Lifeline != nil {
			p = r.Lifeline.ApplicableDiscountPercent
		}
	case FieldSeniorCitizenSubsidy:
		if r.SeniorCitizen != nil {
			p = r.SeniorCitizen.RateSubsidyPerKWh
		}
	case FieldUCMeNPCSPUG:
		p = r.UCMeNPCSPUG
	case FieldUCMeRedCI:
		p = r.UCMeRedCI
	case FieldUCEC:
		p = r.UCEC
	case FieldUCSD:
		p = r.UCSD
	case FieldFITAll:
		p = r.FITAll
	case FieldGEAAll:
		p = r.GEAAll
	}
	if p == nil {
		return decimal.Decimal{}, false
	}
	return *p, true
}

// ProvenanceMetadata records where a payload came from and how it was
// produced, so any published number can be traced back to the exact
// source bytes and parser revision.
type ProvenanceMetadata struct {
	SourcePDFURL         string          `json:"source_pdf_url" validate:"required,url"`
	SourceItemURL        string          `json:"source_item_url,omitempty" validate:"omitempty,url"`
	PDFSHA256            string          `json:"pdf_sha256" validate:"required,len=64,hexadecimal"`
	TableLayoutSignature LayoutSignature `json:"table_layout_signature" validate:"required"`
	FetchedAt            time.Time       `json:"fetched_at" validate:"required"`
	ParserVersion        string          `json:"parser_version" validate:"required"`
}

// RatesPayload is the complete canonical output for one billing month.
type RatesPayload struct {
	Period   Period              `json:"period"`
	Metadata ProvenanceMetadata  `json:"metadata"`
	Rates    []RateBracketRecord `json:"rates" validate:"required,min=1,dive"`
}
