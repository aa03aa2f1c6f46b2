/*
presets.go - Pre-built compensation plan configurations

PURPOSE:
  Provides ready-to-use plan definitions for common agency compensation
  patterns. Demo scenarios and tests build on these instead of repeating
  JSON literals.

AVAILABLE PRESETS:
  StandardTieredPlan:   Percent-of-premium with a three-rung ladder,
                        bundling multipliers and a self-gen requirement
  FlatPerItemPlan:      Flat dollar amount per net item, tiered by items
  BrokeredTrackPlan:    Standard ladder plus an independent brokered
                        ladder that counts toward primary qualification
  PointsPlan:           Points-metric ladder with per-product point
                        values and product spiffs

CUSTOMIZATION:
  These are starting points. Real plans usually adjust thresholds,
  rates, and self-gen percentages per market.

SEE ALSO:
  - plan.go: JSON parsing and validation
  - commission/types.go: CompPlan definition
*/
package factory

// StandardTieredPlan is the typical producer plan: percent of written
// premium on a three-rung ladder, a bundling multiplier at 50%, and a
// 30% self-gen requirement with a 20% reduction penalty.
func StandardTieredPlan(id, name string) PlanJSON {
	return PlanJSON{
		ID:               id,
		Name:             name,
		PayoutType:       "percent_of_premium",
		TierMetric:       "premium",
		TierMetricSource: "written",
		Tiers: []TierJSON{
			{Threshold: 0, Rate: 5},
			{Threshold: 10000, Rate: 8},
			{Threshold: 25000, Rate: 12},
		},
		BundlingMultipliers: []MultiplierJSON{
			{ThresholdPercent: 0, Multiplier: 1.0},
			{ThresholdPercent: 50, Multiplier: 1.1},
		},
		Modifiers: &ModifiersJSON{
			SelfGenRequirement: &SelfGenRequirementJSON{
				Enabled:     true,
				MinPercent:  30,
				PenaltyType: "percent_reduction",
				Value:       20,
			},
		},
	}
}

// FlatPerItemPlan pays a flat amount per net item, tiered by item count,
// with a per-item self-gen bonus at 40%.
func FlatPerItemPlan(id, name string) PlanJSON {
	return PlanJSON{
		ID:               id,
		Name:             name,
		PayoutType:       "flat_per_item",
		TierMetric:       "items",
		TierMetricSource: "written",
		Tiers: []TierJSON{
			{Threshold: 0, Rate: 12},
			{Threshold: 20, Rate: 16},
			{Threshold: 40, Rate: 22},
		},
		Modifiers: &ModifiersJSON{
			SelfGenBonus: &SelfGenBonusJSON{
				Enabled:    true,
				MinPercent: 40,
				BonusType:  "per_item",
				Value:      3,
			},
		},
	}
}

// BrokeredTrackPlan layers an independently tiered brokered book on the
// standard ladder; brokered production also counts toward primary tier
// qualification.
func BrokeredTrackPlan(id, name string) PlanJSON {
	pj := StandardTieredPlan(id, name)
	pj.BrokeredTiers = []TierJSON{
		{Threshold: 0, Rate: 2},
		{Threshold: 5000, Rate: 3},
	}
	pj.BrokeredPayoutType = "percent_of_premium"
	pj.BrokeredTierMetric = "premium"
	pj.BrokeredCountsTowardTier = true
	return pj
}

// PointsPlan qualifies tiers on weighted points (life and health items
// weigh more than auto) and adds product spiffs.
func PointsPlan(id, name string) PlanJSON {
	return PlanJSON{
		ID:               id,
		Name:             name,
		PayoutType:       "flat_per_item",
		TierMetric:       "points",
		TierMetricSource: "written",
		Tiers: []TierJSON{
			{Threshold: 0, Rate: 10},
			{Threshold: 50, Rate: 14},
			{Threshold: 100, Rate: 18},
		},
		PointValues: map[string]float64{
			"auto":   1,
			"home":   1.5,
			"life":   3,
			"health": 2.5,
		},
		ProductRates: map[string]float64{
			"life": 10,
		},
	}
}
