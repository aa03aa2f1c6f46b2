package commission

import "github.com/shopspring/decimal"

// =============================================================================
// BROKERED BOOK - Independently tiered brokered-carrier commission
// =============================================================================

// BrokeredResult is the brokered-track evaluation for one member.
type BrokeredResult struct {
	TierValue   decimal.Decimal `json:"tier_value"`
	Threshold   *decimal.Decimal `json:"threshold,omitempty"` // nil when flat rate or nothing qualified
	Rate        decimal.Decimal `json:"rate"`
	FlatRate    bool            `json:"flat_rate"`
	Commission  decimal.Decimal `json:"commission"`
}

// CalculateBrokered resolves the brokered ladder (or flat rate) against
// the member's brokered written figures and computes the brokered
// commission. Entirely independent of the primary ladder; folding into
// the primary tier metric is handled by the aggregator, and the brokered
// commission itself is computed exactly once, here.
func CalculateBrokered(plan *CompPlan, brokered BrokeredMetrics) BrokeredResult {
	res := BrokeredResult{Commission: decimal.Zero, Rate: decimal.Zero}

	figures := Figures{
		Premium:    brokered.WrittenPremium,
		Items:      brokered.WrittenItems,
		Policies:   brokered.WrittenPolicies,
		Households: decimal.Zero,
	}
	payoutType := plan.BrokeredPayoutType
	if payoutType == "" {
		payoutType = PayoutFlatPerItem
	}

	res.TierValue = brokeredTierValue(plan, brokered)

	switch {
	case len(plan.BrokeredTiers) > 0:
		resolved := ResolveTier(res.TierValue, plan.BrokeredTiers)
		if resolved == nil {
			return res
		}
		threshold := resolved.Tier.Threshold
		res.Threshold = &threshold
		res.Rate = resolved.Tier.Rate

	case plan.BrokeredFlatRate != nil:
		res.FlatRate = true
		res.Rate = *plan.BrokeredFlatRate

	default:
		// Plan carries no brokered track at all.
		return res
	}

	res.Commission = payoutFormula(payoutType, res.Rate, figures)
	return res
}

// BrokeredContribution returns what the brokered book adds to the primary
// tier metric when brokered_counts_toward_tier is set. The fold affects
// qualification only; brokered production never enters the base
// commission figures.
func BrokeredContribution(plan *CompPlan, brokered BrokeredMetrics) decimal.Decimal {
	switch plan.TierMetric {
	case MetricPremium:
		return brokered.WrittenPremium
	case MetricItems, MetricPoints:
		return brokered.WrittenItems
	case MetricPolicies:
		return brokered.WrittenPolicies
	default:
		return decimal.Zero
	}
}

func brokeredTierValue(plan *CompPlan, brokered BrokeredMetrics) decimal.Decimal {
	metric := plan.BrokeredTierMetric
	if metric == "" {
		metric = MetricItems
	}
	switch metric {
	case MetricPremium:
		return brokered.WrittenPremium
	case MetricPolicies:
		return brokered.WrittenPolicies
	default:
		return brokered.WrittenItems
	}
}
