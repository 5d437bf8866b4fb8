package domain

// CanonicalField names one column of the canonical residential rate
// schema. Values double as the stable serialization keys, so they must
// never be renamed once published.
type CanonicalField string

const (
	FieldConsumptionBracket CanonicalField = "consumption_bracket"

	// Core unbundled charges. Every supported layout must map all six.
	FieldGenerationCharge   CanonicalField = "generation_charge"
	FieldTransmissionCharge CanonicalField = "transmission_charge"
	FieldSystemLossCharge   CanonicalField = "system_loss_charge"
	FieldDistributionCharge CanonicalField = "distribution_charge"
	FieldSupplyCharge       CanonicalField = "supply_charge"
	FieldMeteringCharge     CanonicalField = "metering_charge"

	// Adjustments and pass-through charges that come and go between
	// monthly layouts.
	FieldAWATCharge                    CanonicalField = "awat_charge"
	FieldRegulatoryResetFeesAdjustment CanonicalField = "regulatory_reset_fees_adjustment"
	FieldOneTimeResetFeeAdjustment     CanonicalField = "one_time_reset_fee_adjustment"
	FieldCurrentRPTCharge              CanonicalField = "current_rpt_charge"

	// Subsidies.
	FieldLifelineRateSubsidy           CanonicalField = "lifeline_rate_subsidy"
	FieldApplicableDiscountPercent     CanonicalField = "applicable_discount_percent"
	FieldSeniorCitizenSubsidy          CanonicalField = "senior_citizen_subsidy"

	// Universal charges and renewables.
	FieldUCMeNPCSPUG CanonicalField = "uc_me_npc_spug"
	FieldUCMeRedCI   CanonicalField = "uc_me_red_ci"
	FieldUCEC        CanonicalField = "uc_ec"
	FieldUCSD        CanonicalField = "uc_sd"
	FieldFITAll      CanonicalField = "fit_all"
	FieldGEAAll      CanonicalField = "gea_all"
)

// String returns the serialization key of the field.
func (f CanonicalField) String() string {
	return string(f)
}

// CoreChargeFields lists the six charge columns every supported layout
// must carry. A document missing any of them is rejected rather than
// silently published with holes.
func CoreChargeFields() []CanonicalField {
	return []CanonicalField{
		FieldGenerationCharge,
		FieldTransmissionCharge,
		FieldSystemLossCharge,
		FieldDistributionCharge,
		FieldSupplyCharge,
		FieldMeteringCharge,
	}
}
