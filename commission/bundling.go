package commission

import "github.com/shopspring/decimal"

// =============================================================================
// BUNDLING ANALYSIS - Bundled share of the book and its multiplier
// =============================================================================

// BundlingResult captures the bundled-item share and the multiplier it
// resolves to under the plan's ladder.
type BundlingResult struct {
	BundledItems decimal.Decimal `json:"bundled_items"`
	TotalItems   decimal.Decimal `json:"total_items"`
	Percent      decimal.Decimal `json:"percent"` // 0-1 fraction, never NaN
	Multiplier   decimal.Decimal `json:"multiplier"`
}

// AnalyzeBundling computes the bundled percentage of the member's items
// and resolves the configured multiplier. Percent is 0 when there are no
// items at all; the multiplier defaults to 1.0 when no threshold
// qualifies.
func AnalyzeBundling(perf MemberPerformance, plan *CompPlan) BundlingResult {
	totalItems := perf.BundledItems.Add(perf.MonolineItems)
	pct := SafeRatio(perf.BundledItems, totalItems)

	return BundlingResult{
		BundledItems: perf.BundledItems,
		TotalItems:   totalItems,
		Percent:      pct,
		Multiplier:   ResolveMultiplier(pct, plan.BundlingMultipliers),
	}
}

// SelfGenPercent computes the self-generated share of a member's items.
// The classifier reports which basis it used; absent that, the plan's
// tier metric source decides. Defined as 0, never NaN, when the member
// produced no items; capped at 1 against classifier drift.
func SelfGenPercent(selfGen SelfGenMetrics, perf MemberPerformance, plan *CompPlan) decimal.Decimal {
	basis := selfGen.Basis
	if basis == "" {
		basis = plan.TierMetricSource
	}
	if basis == "" {
		basis = BasisWritten
	}
	total := perf.FiguresFor(basis).Items
	pct := SafeRatio(selfGen.SelfGenItems, total)
	if pct.GreaterThan(one) {
		return one
	}
	return pct
}
