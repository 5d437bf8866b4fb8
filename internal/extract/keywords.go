package extract

import (
	"fmt"
	"regexp"
	"strings"

	"meralcocli/pkg/contracts/domain"
)

var nonAlnumPattern = regexp.MustCompile(`[^a-z0-9\s]+`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// normalizeHeaderText folds a raw header cell down to the form the
// keyword rules are written against: lowercase, punctuation stripped,
// whitespace collapsed. "GENERATION\nCHARGE (P/kWh)" and "Generation
// Charge" normalize identically.
func normalizeHeaderText(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "\n", " "))
	s = nonAlnumPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// columnRule maps header wording to a canonical field. A cell matches
// when every term of any one group is contained in its normalized text.
type columnRule struct {
	field domain.CanonicalField
	anyOf [][]string
}

// columnRules is consulted in order and the first match wins, so the
// narrow rules (one-time vs regulatory reset, NPC vs RED universal
// charges) sit above the broad single-word ones they would otherwise
// lose to.
var columnRules = []columnRule{
	{domain.FieldConsumptionBracket, [][]string{{"customer class"}, {"consumption bracket"}, {"kwh bracket"}, {"customer type"}}},
	{domain.FieldOneTimeResetFeeAdjustment, [][]string{{"reset", "one time"}, {"reset", "onetime"}}},
	{domain.FieldRegulatoryResetFeesAdjustment, [][]string{{"reset", "regulatory"}}},
	{domain.FieldLifelineRateSubsidy, [][]string{{"lifeline", "subsidy"}}},
	{domain.FieldApplicableDiscountPercent, [][]string{{"lifeline", "discount"}, {"applicable discount"}}},
	{domain.FieldSeniorCitizenSubsidy, [][]string{{"senior citizen"}}},
	{domain.FieldCurrentRPTCharge, [][]string{{"current rpt"}}},
	{domain.FieldUCMeNPCSPUG, [][]string{{"uc me", "npc"}, {"ucme", "npc"}}},
	{domain.FieldUCMeRedCI, [][]string{{"uc me", "red"}, {"ucme", "red"}}},
	{domain.FieldUCEC, [][]string{{"uc ec"}, {"ucec"}}},
	{domain.FieldUCSD, [][]string{{"uc sd"}, {"ucsd"}}},
	{domain.FieldFITAll, [][]string{{"fit all"}, {"fitall"}}},
	{domain.FieldGEAAll, [][]string{{"gea"}}},
	{domain.FieldSystemLossCharge, [][]string{{"system loss"}}},
	{domain.FieldGenerationCharge, [][]string{{"generation"}}},
	{domain.FieldTransmissionCharge, [][]string{{"transmission"}}},
	{domain.FieldDistributionCharge, [][]string{{"distribution"}}},
	{domain.FieldSupplyCharge, [][]string{{"supply"}}},
	{domain.FieldMeteringCharge, [][]string{{"metering"}}},
	{domain.FieldAWATCharge, [][]string{{"awat"}}},
}

func init() {
	if err := verifyColumnRules(); err != nil {
		panic(err)
	}
}

// verifyColumnRules guards the rule table against edits that would make
// mapping nondeterministic: a field listed twice, or an empty group.
func verifyColumnRules() error {
	seen := make(map[domain.CanonicalField]bool, len(columnRules))
	for _, rule := range columnRules {
		if seen[rule.field] {
			return fmt.Errorf("column rule table lists %s twice", rule.field)
		}
		seen[rule.field] = true
		if len(rule.anyOf) == 0 {
			return fmt.Errorf("column rule for %s has no match groups", rule.field)
		}
		for _, group := range rule.anyOf {
			if len(group) == 0 {
				return fmt.Errorf("column rule for %s has an empty match group", rule.field)
			}
			for _, term := range group {
				if term != normalizeHeaderText(term) {
					return fmt.Errorf("column rule term %q for %s is not in normalized form", term, rule.field)
				}
			}
		}
	}
	return nil
}

// matchColumnRule resolves one normalized header cell to a canonical
// field. Unrecognized wording (footnote markers, peso-unit labels) is
// simply unmapped, not an error.
func matchColumnRule(normalized string) (domain.CanonicalField, bool) {
	for _, rule := range columnRules {
		for _, group := range rule.anyOf {
			matched := true
			for _, term := range group {
				if !strings.Contains(normalized, term) {
					matched = false
					break
				}
			}
			if matched {
				return rule.field, true
			}
		}
	}
	return "", false
}
