/*
modifiers.go - Base commission and self-gen modifier evaluation

PURPOSE:
  Turns a resolved tier, bundling multiplier, and self-gen percentage
  into the commissionable amounts of a payout:
  - Base commission per the plan's payout type, times the bundling
    multiplier
  - Self-gen requirement penalty when the member falls short
  - Self-gen bonus when the member qualifies
  - Extra bundle-type commissions and per-product spiffs (the
    bonusAmount lane of the payout identity)

BASE COMMISSION FORMULAS:
  percent_of_premium   netPremium * rate / 100
  flat_per_item        netItems * rate
  flat_per_policy      netPolicies * rate
  flat_per_household   netHouseholds * rate

SELF-GEN RULES:
  Requirement and bonus reference different thresholds and are evaluated
  independently; both may apply to one payout. Tier demotion recomputes
  the base one rung lower (zero at the floor); tier promotion recomputes
  one rung higher (no bonus at the ceiling). A tier shift is applied at
  most once in each direction.

SEE ALSO:
  - tiers.go: Ladder resolution feeding this engine
  - payout.go: Aggregation ordering and final rounding
*/
package commission

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MODIFIER ENGINE
// =============================================================================

// ModifierInput is everything the modifier engine needs for one member.
type ModifierInput struct {
	Plan       *CompPlan
	Perf       MemberPerformance
	Resolved   *ResolvedTier   // nil when no tier qualified
	Bundling   BundlingResult
	SelfGenPct decimal.Decimal // 0-1 fraction
}

// ModifierResult carries the unrounded commission components.
type ModifierResult struct {
	BaseBeforeMultiplier decimal.Decimal
	BaseCommission       decimal.Decimal // after bundling multiplier

	SelfGenMetRequirement bool
	SelfGenPenalty        decimal.Decimal
	SelfGenBonus          decimal.Decimal

	// Populated when a tier shift was evaluated, for the audit snapshot.
	DemotedTier  *ResolvedTier
	PromotedTier *ResolvedTier
}

// ApplyModifiers computes base commission and self-gen penalty/bonus.
// Pure: never errors, never produces NaN.
func ApplyModifiers(in ModifierInput) ModifierResult {
	res := ModifierResult{
		SelfGenMetRequirement: true,
		SelfGenPenalty:        decimal.Zero,
		SelfGenBonus:          decimal.Zero,
	}

	res.BaseBeforeMultiplier = baseCommission(in.Plan, in.Perf, in.Resolved)
	res.BaseCommission = res.BaseBeforeMultiplier.Mul(in.Bundling.Multiplier)

	applyRequirement(&res, in)
	applyBonus(&res, in)

	return res
}

// baseCommission evaluates the payout-type formula at the given tier's
// rate. A nil tier (below the lowest threshold) earns nothing.
func baseCommission(plan *CompPlan, perf MemberPerformance, tier *ResolvedTier) decimal.Decimal {
	if tier == nil {
		return decimal.Zero
	}
	return payoutFormula(plan.PayoutType, tier.Tier.Rate, perf.Net)
}

// payoutFormula is the single exhaustive evaluation of the payout-type
// tagged union. Unknown types pay nothing rather than guessing.
func payoutFormula(payoutType PayoutType, rate decimal.Decimal, figures Figures) decimal.Decimal {
	switch payoutType {
	case PayoutPercentOfPremium:
		return figures.Premium.Mul(rate).Div(oneHundred)
	case PayoutFlatPerItem:
		return figures.Items.Mul(rate)
	case PayoutFlatPerPolicy:
		return figures.Policies.Mul(rate)
	case PayoutFlatPerHousehold:
		return figures.Households.Mul(rate)
	default:
		return decimal.Zero
	}
}

// applyRequirement evaluates the self-gen requirement and records the
// penalty when the member falls short of min_percent.
func applyRequirement(res *ModifierResult, in ModifierInput) {
	req := in.Plan.Modifiers.SelfGenRequirement
	if req == nil || !req.Enabled {
		return
	}

	if in.SelfGenPct.Mul(oneHundred).GreaterThanOrEqual(req.MinPercent) {
		return
	}
	res.SelfGenMetRequirement = false

	switch req.PenaltyType {
	case PenaltyPercentReduction:
		res.SelfGenPenalty = res.BaseCommission.Mul(req.Value).Div(oneHundred)

	case PenaltyFlatReduction:
		res.SelfGenPenalty = req.Value

	case PenaltyTierDemotion:
		// Recompute the base one rung lower; zero at the floor. The
		// recorded penalty is the difference against the original base.
		var demotedBase decimal.Decimal
		if in.Resolved != nil {
			res.DemotedTier = TierAt(in.Plan.Tiers, in.Resolved.Index-1)
			if res.DemotedTier != nil {
				demotedBase = payoutFormula(in.Plan.PayoutType, res.DemotedTier.Tier.Rate, in.Perf.Net).
					Mul(in.Bundling.Multiplier)
			}
		}
		res.SelfGenPenalty = res.BaseCommission.Sub(demotedBase)
	}
}

// applyBonus evaluates the self-gen bonus, independent of the
// requirement, when the member meets the bonus threshold.
func applyBonus(res *ModifierResult, in ModifierInput) {
	bonus := in.Plan.Modifiers.SelfGenBonus
	if bonus == nil || !bonus.Enabled {
		return
	}

	if in.SelfGenPct.Mul(oneHundred).LessThan(bonus.MinPercent) {
		return
	}

	switch bonus.BonusType {
	case BonusPercentBoost:
		res.SelfGenBonus = res.BaseCommission.Mul(bonus.Value).Div(oneHundred)

	case BonusFlat:
		res.SelfGenBonus = bonus.Value

	case BonusPerItem:
		res.SelfGenBonus = in.Perf.Net.Items.Mul(bonus.Value)

	case BonusPerPolicy:
		res.SelfGenBonus = in.Perf.Net.Policies.Mul(bonus.Value)

	case BonusPerHousehold:
		res.SelfGenBonus = in.Perf.Net.Households.Mul(bonus.Value)

	case BonusTierPromotion:
		// Recompute the base one rung higher; no bonus at the ceiling.
		// With no qualifying tier the promotion lands on the lowest rung.
		nextIndex := 0
		if in.Resolved != nil {
			nextIndex = in.Resolved.Index + 1
		}
		res.PromotedTier = TierAt(in.Plan.Tiers, nextIndex)
		if res.PromotedTier != nil {
			promotedBase := payoutFormula(in.Plan.PayoutType, res.PromotedTier.Tier.Rate, in.Perf.Net).
				Mul(in.Bundling.Multiplier)
			diff := promotedBase.Sub(res.BaseCommission)
			if diff.IsPositive() {
				res.SelfGenBonus = diff
			}
		}
	}
}

// =============================================================================
// EXTRA COMPENSATION - Bundle commissions and product spiffs
// =============================================================================

// BundleCommissionLine is one bundle type's extra commission, recorded in
// the audit snapshot.
type BundleCommissionLine struct {
	BundleType BundleType      `json:"bundle_type"`
	PayoutType PayoutType      `json:"payout_type"`
	Rate       decimal.Decimal `json:"rate"`
	Amount     decimal.Decimal `json:"amount"`
}

// BundleCommissions evaluates the plan's per-bundle-type configs against
// the member's bundle breakdown. Disabled configs and bundle types the
// member did not produce contribute nothing.
func BundleCommissions(plan *CompPlan, perf MemberPerformance) ([]BundleCommissionLine, decimal.Decimal) {
	var lines []BundleCommissionLine
	total := decimal.Zero

	for _, bt := range sortedBundleTypes(perf.ByBundle) {
		cfg, ok := plan.BundleConfigs[bt]
		if !ok || !cfg.Enabled {
			continue
		}
		prod := perf.ByBundle[bt]

		rate := cfg.FlatRate
		if len(cfg.Tiers) > 0 {
			resolved := ResolveTier(bundleTierValue(cfg.PayoutType, prod), cfg.Tiers)
			if resolved == nil {
				continue
			}
			rate = resolved.Tier.Rate
		}

		amount := payoutFormula(cfg.PayoutType, rate, Figures{
			Premium:    prod.Premium,
			Items:      prod.Items,
			Policies:   prod.Policies,
			Households: prod.Household,
		})
		if amount.IsZero() {
			continue
		}

		lines = append(lines, BundleCommissionLine{
			BundleType: bt,
			PayoutType: cfg.PayoutType,
			Rate:       rate,
			Amount:     amount,
		})
		total = total.Add(amount)
	}

	return lines, total
}

// Map iteration order is not deterministic; commission lines are, so
// bundle types and products are walked in sorted order.
func sortedBundleTypes(m map[BundleType]BundleProduction) []BundleType {
	keys := make([]BundleType, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedProducts(m map[string]ProductProduction) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// bundleTierValue picks the qualification metric for a bundle ladder:
// premium for percent payouts, item count otherwise.
func bundleTierValue(payoutType PayoutType, prod BundleProduction) decimal.Decimal {
	if payoutType == PayoutPercentOfPremium {
		return prod.Premium
	}
	return prod.Items
}

// ProductSpiffLine is one product's flat per-item spiff.
type ProductSpiffLine struct {
	Product string          `json:"product"`
	Items   decimal.Decimal `json:"items"`
	Rate    decimal.Decimal `json:"rate"`
	Amount  decimal.Decimal `json:"amount"`
}

// ProductSpiffs pays the plan's per-product flat rates on top of the base
// commission (for example, an extra amount per life policy written).
func ProductSpiffs(plan *CompPlan, perf MemberPerformance) ([]ProductSpiffLine, decimal.Decimal) {
	var lines []ProductSpiffLine
	total := decimal.Zero

	for _, product := range sortedProducts(perf.ByProduct) {
		rate, ok := plan.ProductRates[product]
		if !ok || rate.IsZero() {
			continue
		}
		items := perf.ByProduct[product].Items
		if items.Sign() <= 0 {
			continue
		}
		amount := items.Mul(rate)
		lines = append(lines, ProductSpiffLine{
			Product: product,
			Items:   items,
			Rate:    rate,
			Amount:  amount,
		})
		total = total.Add(amount)
	}

	return lines, total
}
