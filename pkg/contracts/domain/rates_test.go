package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateBracketRecordSetCharge(t *testing.T) {
	rec := &RateBracketRecord{ConsumptionBracket: "0 TO 20 KWH", MinKWh: 0, MaxKWh: int64Ptr(20)}

	require.NoError(t, rec.SetCharge(FieldGenerationCharge, decimal.RequireFromString("5.1234")))
	require.NoError(t, rec.SetCharge(FieldLifelineRateSubsidy, decimal.RequireFromString("-0.5")))
	require.NoError(t, rec.SetCharge(FieldApplicableDiscountPercent, decimal.RequireFromString("100")))
	require.NoError(t, rec.SetCharge(FieldSeniorCitizenSubsidy, decimal.RequireFromString("0.0011")))

	require.NotNil(t, rec.GenerationCharge)
	assert.Equal(t, "5.1234", rec.GenerationCharge.String())

	require.NotNil(t, rec.Lifeline)
	require.NotNil(t, rec.Lifeline.RateSubsidyPerKWh)
	assert.Equal(t, "-0.5", rec.Lifeline.RateSubsidyPerKWh.String())
	require.NotNil(t, rec.Lifeline.ApplicableDiscountPercent)
	assert.Equal(t, "100", rec.Lifeline.ApplicableDiscountPercent.String())

	require.NotNil(t, rec.SeniorCitizen)
	assert.Equal(t, "0.0011", rec.SeniorCitizen.RateSubsidyPerKWh.String())

	err := rec.SetCharge(CanonicalField("bogus"), decimal.Zero)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown canonical field")
}

func TestRateBracketRecordChargeRoundTrip(t *testing.T) {
	rec := &RateBracketRecord{ConsumptionBracket: "21 TO 50 KWH", MinKWh: 21, MaxKWh: int64Ptr(50)}

	for _, f := range CoreChargeFields() {
		_, ok := rec.Charge(f)
		assert.False(t, ok, "unset field %s must read back as absent", f)
	}

	want := decimal.RequireFromString("1.2345")
	require.NoError(t, rec.SetCharge(FieldSystemLossCharge, want))

	got, ok := rec.Charge(FieldSystemLossCharge)
	require.True(t, ok)
	assert.True(t, want.Equal(got))
}

func TestRateBracketRecordJSON(t *testing.T) {
	rec := RateBracketRecord{
		ConsumptionBracket: "OVER 900 KWH",
		MinKWh:             901,
		MaxKWh:             nil,
	}
	require.NoError(t, rec.SetCharge(FieldGenerationCharge, decimal.RequireFromString("5.6069")))
	require.NoError(t, rec.SetCharge(FieldFITAll, decimal.RequireFromString("0.1189")))

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	raw := string(data)

	// Unbounded max is an explicit null, never omitted.
	assert.Contains(t, raw, `"max_kwh":null`)
	// Rates are JSON numbers, not quoted strings.
	assert.Contains(t, raw, `"generation_charge":5.6069`)
	assert.Contains(t, raw, `"fit_all":0.1189`)
	// Absent columns disappear instead of showing up as zeros.
	assert.NotContains(t, raw, "transmission_charge")
	assert.NotContains(t, raw, "lifeline")

	assert.True(t, rec.Unbounded())
}

func TestRatesPayloadJSON(t *testing.T) {
	rec := RateBracketRecord{ConsumptionBracket: "0 TO 20 KWH", MinKWh: 0, MaxKWh: int64Ptr(20)}
	require.NoError(t, rec.SetCharge(FieldGenerationCharge, decimal.RequireFromString("5.1")))

	payload := RatesPayload{
		Period: NewPeriod(2025, time.June),
		Metadata: ProvenanceMetadata{
			SourcePDFURL:         "https://company.meralco.com.ph/sites/default/files/2025-06/rates.pdf",
			PDFSHA256:            "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
			TableLayoutSignature: LayoutSignature("ab12cd34ef56ab78"),
			FetchedAt:            time.Date(2025, time.June, 17, 8, 0, 0, 0, time.UTC),
			ParserVersion:        "v3_generic",
		},
		Rates: []RateBracketRecord{rec},
	}

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded RatesPayload
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, payload.Period, decoded.Period)
	assert.Equal(t, payload.Metadata.PDFSHA256, decoded.Metadata.PDFSHA256)
	require.Len(t, decoded.Rates, 1)
	require.NotNil(t, decoded.Rates[0].GenerationCharge)
	assert.True(t, decoded.Rates[0].GenerationCharge.Equal(decimal.RequireFromString("5.1")))
}

func int64Ptr(v int64) *int64 {
	return &v
}
