/*
Package factory provides JSON to Go compensation plan conversion.

PURPOSE:
  Converts JSON plan definitions into commission.CompPlan values. This
  enables plan configuration without code changes - an admin can define
  tier ladders, bundling multipliers, and self-gen rules in JSON, and
  the factory creates the proper Go structs with defaults applied.

WHY JSON?
  - Non-developers can modify plans
  - Easy integration with admin UI
  - Version control for plan definitions
  - Database storage of plan configs

JSON SCHEMA:
  {
    "id": "producer-standard",
    "name": "Standard Producer Plan",
    "payout_type": "percent_of_premium",
    "tier_metric": "premium",
    "tier_metric_source": "written",
    "tiers": [
      {"threshold": 0, "rate": 5},
      {"threshold": 10000, "rate": 8},
      {"threshold": 25000, "rate": 12}
    ],
    "bundling_multipliers": [
      {"threshold_percent": 0, "multiplier": 1.0},
      {"threshold_percent": 50, "multiplier": 1.1}
    ],
    "commission_modifiers": {
      "self_gen_requirement": {
        "enabled": true, "min_percent": 30,
        "penalty_type": "percent_reduction", "value": 20
      }
    }
  }

VALIDATION:
  ParsePlan never rejects a structurally valid plan; config smells
  (duplicate tier thresholds, negative rates, legacy kicker overlap)
  come back as warnings so they surface in admin tooling instead of
  silently changing payouts.

LEGACY KICKER:
  Older plans carried a flat per-item "self-gen kicker"
  (min_self_gen_percent + self_gen_kicker_amount). The structured
  self_gen_bonus config is authoritative: when both are present the
  kicker is ignored with a warning; when only the kicker is present it
  is translated into an equivalent per_item self_gen_bonus. The two
  never stack.

SEE ALSO:
  - commission/types.go: CompPlan definition
  - presets.go: Ready-made plan JSON builders for demos and tests
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PlanJSON is the JSON representation of a compensation plan.
type PlanJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	PayoutType       string     `json:"payout_type,omitempty"`
	TierMetric       string     `json:"tier_metric,omitempty"`
	TierMetricSource string     `json:"tier_metric_source,omitempty"`
	Tiers            []TierJSON `json:"tiers,omitempty"`

	BrokeredTiers            []TierJSON `json:"brokered_tiers,omitempty"`
	BrokeredFlatRate         *float64   `json:"brokered_flat_rate,omitempty"`
	BrokeredPayoutType       string     `json:"brokered_payout_type,omitempty"`
	BrokeredTierMetric       string     `json:"brokered_tier_metric,omitempty"`
	BrokeredCountsTowardTier bool       `json:"brokered_counts_toward_tier,omitempty"`

	BundleConfigs map[string]BundleConfigJSON `json:"bundle_configs,omitempty"`
	ProductRates  map[string]float64          `json:"product_rates,omitempty"`
	PointValues   map[string]float64          `json:"point_values,omitempty"`

	BundlingMultipliers []MultiplierJSON `json:"bundling_multipliers,omitempty"`
	Modifiers           *ModifiersJSON   `json:"commission_modifiers,omitempty"`

	// Legacy self-gen kicker (superseded by commission_modifiers).
	MinSelfGenPercent    *float64 `json:"min_self_gen_percent,omitempty"`
	SelfGenKickerAmount  *float64 `json:"self_gen_kicker_amount,omitempty"`
}

// TierJSON is one rung of a rate ladder.
type TierJSON struct {
	Threshold float64 `json:"threshold"`
	Rate      float64 `json:"rate"`
}

// MultiplierJSON maps a bundled-percent threshold to a multiplier.
type MultiplierJSON struct {
	ThresholdPercent float64 `json:"threshold_percent"`
	Multiplier       float64 `json:"multiplier"`
}

// BundleConfigJSON configures extra commission for one bundle type.
type BundleConfigJSON struct {
	Enabled    bool       `json:"enabled"`
	PayoutType string     `json:"payout_type,omitempty"`
	FlatRate   float64    `json:"flat_rate,omitempty"`
	Tiers      []TierJSON `json:"tiers,omitempty"`
}

// ModifiersJSON groups self-gen rules.
type ModifiersJSON struct {
	SelfGenRequirement *SelfGenRequirementJSON `json:"self_gen_requirement,omitempty"`
	SelfGenBonus       *SelfGenBonusJSON       `json:"self_gen_bonus,omitempty"`
}

type SelfGenRequirementJSON struct {
	Enabled     bool    `json:"enabled"`
	MinPercent  float64 `json:"min_percent"`
	PenaltyType string  `json:"penalty_type"`
	Value       float64 `json:"value"`
}

type SelfGenBonusJSON struct {
	Enabled    bool    `json:"enabled"`
	MinPercent float64 `json:"min_percent"`
	BonusType  string  `json:"bonus_type"`
	Value      float64 `json:"value"`
}

// =============================================================================
// FACTORY
// =============================================================================

// PlanFactory converts JSON plan definitions into engine plans.
type PlanFactory struct{}

func NewPlanFactory() *PlanFactory {
	return &PlanFactory{}
}

// ParsePlan parses a JSON plan definition, applies defaults, and returns
// the plan together with validation warnings. Only structural problems
// (malformed JSON, missing id) are errors.
func (f *PlanFactory) ParsePlan(jsonStr string) (*commission.CompPlan, []commission.Warning, error) {
	var pj PlanJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, nil, fmt.Errorf("invalid plan JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts an already-decoded PlanJSON.
func (f *PlanFactory) FromJSON(pj PlanJSON) (*commission.CompPlan, []commission.Warning, error) {
	if pj.ID == "" {
		return nil, nil, fmt.Errorf("plan is missing an id")
	}

	plan := &commission.CompPlan{
		ID:   commission.PlanID(pj.ID),
		Name: pj.Name,

		PayoutType:       payoutTypeOrDefault(pj.PayoutType, commission.PayoutPercentOfPremium),
		TierMetric:       tierMetricOrDefault(pj.TierMetric, commission.MetricPremium),
		TierMetricSource: basisOrDefault(pj.TierMetricSource),
		Tiers:            convertTiers(pj.Tiers),

		BrokeredTiers:            convertTiers(pj.BrokeredTiers),
		BrokeredPayoutType:       commission.PayoutType(pj.BrokeredPayoutType),
		BrokeredTierMetric:       commission.TierMetric(pj.BrokeredTierMetric),
		BrokeredCountsTowardTier: pj.BrokeredCountsTowardTier,
	}
	if pj.BrokeredFlatRate != nil {
		rate := decimal.NewFromFloat(*pj.BrokeredFlatRate)
		plan.BrokeredFlatRate = &rate
	}

	if len(pj.BundleConfigs) > 0 {
		plan.BundleConfigs = make(map[commission.BundleType]commission.BundleConfig, len(pj.BundleConfigs))
		for bt, cfg := range pj.BundleConfigs {
			plan.BundleConfigs[commission.BundleType(bt)] = commission.BundleConfig{
				Enabled:    cfg.Enabled,
				PayoutType: payoutTypeOrDefault(cfg.PayoutType, commission.PayoutFlatPerItem),
				FlatRate:   decimal.NewFromFloat(cfg.FlatRate),
				Tiers:      convertTiers(cfg.Tiers),
			}
		}
	}
	plan.ProductRates = convertRateMap(pj.ProductRates)
	plan.PointValues = convertRateMap(pj.PointValues)

	for _, m := range pj.BundlingMultipliers {
		plan.BundlingMultipliers = append(plan.BundlingMultipliers, commission.BundlingMultiplier{
			ThresholdPercent: decimal.NewFromFloat(m.ThresholdPercent),
			Multiplier:       decimal.NewFromFloat(m.Multiplier),
		})
	}

	warnings := f.applyModifiers(plan, pj)
	warnings = append(warnings, ValidatePlan(plan)...)

	return plan, warnings, nil
}

// applyModifiers wires the structured self-gen config, translating the
// legacy kicker when no structured bonus exists.
func (f *PlanFactory) applyModifiers(plan *commission.CompPlan, pj PlanJSON) []commission.Warning {
	var warnings []commission.Warning

	if pj.Modifiers != nil {
		if req := pj.Modifiers.SelfGenRequirement; req != nil {
			plan.Modifiers.SelfGenRequirement = &commission.SelfGenRequirement{
				Enabled:     req.Enabled,
				MinPercent:  decimal.NewFromFloat(req.MinPercent),
				PenaltyType: commission.PenaltyType(req.PenaltyType),
				Value:       decimal.NewFromFloat(req.Value),
			}
		}
		if bonus := pj.Modifiers.SelfGenBonus; bonus != nil {
			plan.Modifiers.SelfGenBonus = &commission.SelfGenBonus{
				Enabled:    bonus.Enabled,
				MinPercent: decimal.NewFromFloat(bonus.MinPercent),
				BonusType:  commission.BonusType(bonus.BonusType),
				Value:      decimal.NewFromFloat(bonus.Value),
			}
		}
	}

	hasKicker := pj.MinSelfGenPercent != nil && pj.SelfGenKickerAmount != nil
	if !hasKicker {
		return warnings
	}

	if plan.Modifiers.SelfGenBonus != nil {
		warnings = append(warnings, commission.Warning{
			Code:   commission.WarnLegacyKickerIgnored,
			PlanID: plan.ID,
			Detail: "plan has both a legacy self-gen kicker and a self_gen_bonus; the structured bonus wins",
		})
		return warnings
	}

	plan.Modifiers.SelfGenBonus = &commission.SelfGenBonus{
		Enabled:    true,
		MinPercent: decimal.NewFromFloat(*pj.MinSelfGenPercent),
		BonusType:  commission.BonusPerItem,
		Value:      decimal.NewFromFloat(*pj.SelfGenKickerAmount),
	}
	return warnings
}

// =============================================================================
// VALIDATION - Config smells become warnings, never errors
// =============================================================================

// ValidatePlan flags configuration problems the engine will tolerate
// deterministically but an admin should fix.
func ValidatePlan(plan *commission.CompPlan) []commission.Warning {
	var warnings []commission.Warning

	warnings = append(warnings, validateLadder(plan.ID, "tiers", plan.Tiers)...)
	warnings = append(warnings, validateLadder(plan.ID, "brokered_tiers", plan.BrokeredTiers)...)

	for i, m := range plan.BundlingMultipliers {
		if m.Multiplier.IsNegative() {
			warnings = append(warnings, commission.Warning{
				Code:   commission.WarnNegativeInputClamped,
				PlanID: plan.ID,
				Detail: fmt.Sprintf("bundling_multipliers[%d] has a negative multiplier", i),
			})
		}
	}

	return warnings
}

func validateLadder(planID commission.PlanID, name string, tiers []commission.Tier) []commission.Warning {
	var warnings []commission.Warning

	seen := make(map[string]bool, len(tiers))
	for i, t := range tiers {
		key := t.Threshold.String()
		if seen[key] {
			warnings = append(warnings, commission.Warning{
				Code:   commission.WarnDuplicateTierThreshold,
				PlanID: planID,
				Detail: fmt.Sprintf("%s has duplicate threshold %s; the later occurrence wins", name, key),
			})
		}
		seen[key] = true

		if t.Rate.IsNegative() {
			warnings = append(warnings, commission.Warning{
				Code:   commission.WarnNegativeInputClamped,
				PlanID: planID,
				Detail: fmt.Sprintf("%s[%d] has a negative rate", name, i),
			})
		}
	}

	return warnings
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func convertTiers(tiers []TierJSON) []commission.Tier {
	var out []commission.Tier
	for _, t := range tiers {
		out = append(out, commission.Tier{
			Threshold: decimal.NewFromFloat(t.Threshold),
			Rate:      decimal.NewFromFloat(t.Rate),
		})
	}
	return out
}

func convertRateMap(m map[string]float64) map[string]decimal.Decimal {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = decimal.NewFromFloat(v)
	}
	return out
}

func payoutTypeOrDefault(s string, def commission.PayoutType) commission.PayoutType {
	if s == "" {
		return def
	}
	return commission.PayoutType(s)
}

func tierMetricOrDefault(s string, def commission.TierMetric) commission.TierMetric {
	if s == "" {
		return def
	}
	return commission.TierMetric(s)
}

func basisOrDefault(s string) commission.MetricBasis {
	if s == "" {
		return commission.BasisWritten
	}
	return commission.MetricBasis(s)
}
