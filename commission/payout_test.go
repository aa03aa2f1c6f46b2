package commission_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// standardPlan mirrors the typical producer plan: 5/8/12% of premium at
// 0/10000/25000, a 1.1x bundling multiplier at 50%, and a 30% self-gen
// floor with a 20% reduction penalty.
func standardPlan() *commission.CompPlan {
	return &commission.CompPlan{
		ID:               "plan-standard",
		Name:             "Standard Producer Plan",
		PayoutType:       commission.PayoutPercentOfPremium,
		TierMetric:       commission.MetricPremium,
		TierMetricSource: commission.BasisWritten,
		Tiers:            standardLadder(),
		BundlingMultipliers: []commission.BundlingMultiplier{
			{ThresholdPercent: d(0), Multiplier: df(1.0)},
			{ThresholdPercent: d(50), Multiplier: df(1.1)},
		},
		Modifiers: commission.CommissionModifiers{
			SelfGenRequirement: &commission.SelfGenRequirement{
				Enabled:     true,
				MinPercent:  d(30),
				PenaltyType: commission.PenaltyPercentReduction,
				Value:       d(20),
			},
		},
	}
}

func memberInput(plan *commission.CompPlan, premium, items, bundled, selfGen int64) commission.MemberPayoutInput {
	return commission.MemberPayoutInput{
		Member:     testMember(),
		Plan:       plan,
		Assignment: commission.PlanAssignment{ID: "assign-1", MemberID: "mem-1", PlanID: plan.ID},
		Month:      3,
		Year:       2026,
		Raw: []commission.SubProducerMetrics{{
			SubProducerCode: "SP-100",
			Month:           3,
			Year:            2026,
			Written: commission.Figures{
				Premium: d(premium),
				Items:   d(items),
			},
			BundledItems:  d(bundled),
			MonolineItems: d(items - bundled),
		}},
		SelfGen: commission.SelfGenMetrics{
			SelfGenItems: d(selfGen),
			Basis:        commission.BasisWritten,
		},
	}
}

// identityTotal recomputes the payout identity from the calc's components.
func identityTotal(calc commission.PayoutCalculation) decimal.Decimal {
	return commission.RoundCurrency(
		calc.BaseCommission.
			Sub(calc.SelfGenPenalty).
			Add(calc.SelfGenBonus).
			Add(calc.BrokeredCommission).
			Add(calc.BonusAmount))
}

// =============================================================================
// END-TO-END SINGLE-MEMBER PAYOUTS
// =============================================================================

func TestPayout_LowTierNoModifiers(t *testing.T) {
	// GIVEN: 8000 premium, 20% bundled, 50% self-gen
	// THEN: 8000 * 5% = 400, no multiplier, no penalty

	calc, warnings := commission.CalculateMemberPayout(
		memberInput(standardPlan(), 8000, 10, 2, 5))

	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if !calc.TotalPayout.Equal(d(400)) {
		t.Errorf("expected 400, got %s", calc.TotalPayout)
	}
	if calc.TierIndex != 0 {
		t.Errorf("expected the lowest rung, got index %d", calc.TierIndex)
	}
}

func TestPayout_MidTierWithBundlingMultiplier(t *testing.T) {
	// GIVEN: 15000 premium, 60% bundled, 40% self-gen
	// THEN: 15000 * 8% * 1.1 = 1320

	calc, _ := commission.CalculateMemberPayout(
		memberInput(standardPlan(), 15000, 20, 12, 8))

	if !calc.TotalPayout.Equal(d(1320)) {
		t.Errorf("expected 1320, got %s", calc.TotalPayout)
	}
	if !calc.BundlingMultiplier.Equal(df(1.1)) {
		t.Errorf("expected multiplier 1.1, got %s", calc.BundlingMultiplier)
	}
}

func TestPayout_SelfGenPenaltyApplied(t *testing.T) {
	// GIVEN: Same production as the mid-tier case but only 20% self-gen
	// THEN: 1320 - 20% = 1056

	calc, _ := commission.CalculateMemberPayout(
		memberInput(standardPlan(), 15000, 20, 12, 4))

	if calc.SelfGenMetRequirement {
		t.Error("expected requirement missed at 20% self-gen")
	}
	if !calc.TotalPayout.Equal(d(1056)) {
		t.Errorf("expected 1056, got %s", calc.TotalPayout)
	}
}

func TestPayout_TopTier(t *testing.T) {
	// GIVEN: 30000 premium, 20 of 35 items bundled (~57%), 40% self-gen
	// THEN: 30000 * 12% * 1.1 = 3960

	calc, _ := commission.CalculateMemberPayout(
		memberInput(standardPlan(), 30000, 35, 20, 14))

	if !calc.TotalPayout.Equal(d(3960)) {
		t.Errorf("expected 3960, got %s", calc.TotalPayout)
	}
	if calc.TierThresholdMet == nil || !calc.TierThresholdMet.Equal(d(25000)) {
		t.Errorf("expected the 25000 rung, got %v", calc.TierThresholdMet)
	}
}

func TestPayout_BrokeredFoldLiftsQualificationOnly(t *testing.T) {
	// GIVEN: 9000 primary premium (below the 10000 rung) plus 6000
	//        brokered premium with brokered_counts_toward_tier
	// THEN: Qualification uses 15000 (8% rung) but the base pays on the
	//       un-folded 9000; the brokered book pays on its own ladder

	plan := standardPlan()
	plan.BrokeredTiers = []commission.Tier{
		{Threshold: d(0), Rate: d(2)},
		{Threshold: d(5000), Rate: d(3)},
	}
	plan.BrokeredPayoutType = commission.PayoutPercentOfPremium
	plan.BrokeredTierMetric = commission.MetricPremium
	plan.BrokeredCountsTowardTier = true

	in := memberInput(plan, 9000, 12, 6, 5)
	in.Brokered = commission.BrokeredMetrics{
		WrittenItems:    d(8),
		WrittenPremium:  d(6000),
		WrittenPolicies: d(4),
	}

	calc, _ := commission.CalculateMemberPayout(in)

	if calc.TierThresholdMet == nil || !calc.TierThresholdMet.Equal(d(10000)) {
		t.Fatalf("expected the folded value to reach the 10000 rung, got %v", calc.TierThresholdMet)
	}
	// Base: 9000 * 8% * 1.1 (50% bundled) = 792. Brokered: 6000 * 3% = 180.
	if !calc.BaseCommission.Equal(d(792)) {
		t.Errorf("expected base 792 on un-folded premium, got %s", calc.BaseCommission)
	}
	if !calc.BrokeredCommission.Equal(d(180)) {
		t.Errorf("expected brokered 180, got %s", calc.BrokeredCommission)
	}
	if !calc.TotalPayout.Equal(d(972)) {
		t.Errorf("expected 972, got %s", calc.TotalPayout)
	}
	if !calc.Snapshot.QualifyingValue.Equal(d(15000)) {
		t.Errorf("snapshot should show qualifying value 15000, got %s", calc.Snapshot.QualifyingValue)
	}
}

func TestPayout_ZeroProduction_ValidZeroPayout(t *testing.T) {
	// GIVEN: A member with no statement rows at all
	// THEN: A valid all-zero payout, not an omission or error

	in := commission.MemberPayoutInput{
		Member:     testMember(),
		Plan:       standardPlan(),
		Assignment: commission.PlanAssignment{ID: "assign-1"},
		Month:      3,
		Year:       2026,
	}

	calc, warnings := commission.CalculateMemberPayout(in)

	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if !calc.TotalPayout.IsZero() {
		t.Errorf("expected zero payout, got %s", calc.TotalPayout)
	}
	// The standard ladder starts at 0, but zero production qualifies for
	// no tier at all: the record reports a nil threshold, not the zero rung.
	if calc.TierThresholdMet != nil {
		t.Errorf("expected nil threshold for zero production, got %s", calc.TierThresholdMet)
	}
	if calc.TierIndex != -1 {
		t.Errorf("expected tier index -1, got %d", calc.TierIndex)
	}
}

func TestPayout_JustBelowTierBoundary(t *testing.T) {
	// GIVEN: 9999 premium, one dollar short of the 10000 rung
	// THEN: The lowest rung pays: 9999 * 5% = 499.95

	calc, _ := commission.CalculateMemberPayout(
		memberInput(standardPlan(), 9999, 10, 2, 5))

	if calc.TierIndex != 0 {
		t.Errorf("expected the lowest rung at 9999, got index %d", calc.TierIndex)
	}
	if calc.TierThresholdMet == nil || !calc.TierThresholdMet.Equal(d(0)) {
		t.Errorf("expected the 0 rung, got %v", calc.TierThresholdMet)
	}
	if !calc.TotalPayout.Equal(df(499.95)) {
		t.Errorf("expected 499.95, got %s", calc.TotalPayout)
	}
}

func TestPayout_BelowLowestRung_NilThreshold(t *testing.T) {
	plan := standardPlan()
	plan.Tiers = []commission.Tier{
		{Threshold: d(5000), Rate: d(5)},
		{Threshold: d(10000), Rate: d(8)},
	}

	calc, _ := commission.CalculateMemberPayout(memberInput(plan, 3000, 4, 0, 2))

	if calc.TierThresholdMet != nil {
		t.Errorf("expected nil threshold below the floor, got %s", calc.TierThresholdMet)
	}
	if calc.TierIndex != -1 {
		t.Errorf("expected tier index -1, got %d", calc.TierIndex)
	}
	if !calc.BaseCommission.IsZero() {
		t.Errorf("expected zero base, got %s", calc.BaseCommission)
	}
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestPayout_IdentityHoldsAcrossCases(t *testing.T) {
	// totalPayout = round(base - penalty + selfGenBonus + brokered + bonus)
	// for every calculation, whatever the configuration.

	plan := standardPlan()
	plan.ProductRates = map[string]decimal.Decimal{"life": d(10)}
	plan.BrokeredTiers = []commission.Tier{{Threshold: d(0), Rate: d(2)}}
	plan.BrokeredPayoutType = commission.PayoutPercentOfPremium
	plan.BrokeredTierMetric = commission.MetricPremium

	cases := []commission.MemberPayoutInput{
		memberInput(plan, 8000, 10, 2, 5),
		memberInput(plan, 15000, 20, 12, 4),
		memberInput(plan, 30000, 35, 20, 14),
		memberInput(plan, 0, 0, 0, 0),
	}
	cases[1].Brokered = commission.BrokeredMetrics{WrittenPremium: d(4000), WrittenItems: d(5)}

	for i, in := range cases {
		calc, _ := commission.CalculateMemberPayout(in)
		if want := identityTotal(calc); !calc.TotalPayout.Equal(want) {
			t.Errorf("case %d: identity violated: total %s, components give %s",
				i, calc.TotalPayout, want)
		}
	}
}

func TestPayout_Deterministic(t *testing.T) {
	// Identical inputs produce identical outputs, including the snapshot.

	in := memberInput(standardPlan(), 15000, 20, 12, 8)

	first, _ := commission.CalculateMemberPayout(in)
	second, _ := commission.CalculateMemberPayout(in)

	if !first.TotalPayout.Equal(second.TotalPayout) {
		t.Errorf("totals differ: %s vs %s", first.TotalPayout, second.TotalPayout)
	}
	if !first.Snapshot.TotalBeforeRounding.Equal(second.Snapshot.TotalBeforeRounding) {
		t.Errorf("unrounded totals differ: %s vs %s",
			first.Snapshot.TotalBeforeRounding, second.Snapshot.TotalBeforeRounding)
	}
}

func TestPayout_SharesStayInUnitRange(t *testing.T) {
	// Bundling and self-gen percentages are 0-1 fractions even with
	// classifier drift (self-gen items exceeding total items).

	in := memberInput(standardPlan(), 15000, 10, 4, 25)

	calc, _ := commission.CalculateMemberPayout(in)

	for name, pct := range map[string]decimal.Decimal{
		"bundling_percent": calc.BundlingPercent,
		"self_gen_percent": calc.SelfGenPercent,
	} {
		if pct.IsNegative() || pct.GreaterThan(d(1)) {
			t.Errorf("%s out of [0,1]: %s", name, pct)
		}
	}
}

func TestPayout_RoundsExactlyOnceAtTheEnd(t *testing.T) {
	// GIVEN: Production that yields fractional cents
	// THEN: The snapshot keeps the unrounded total; only TotalPayout is
	//       rounded, half away from zero

	plan := standardPlan()
	in := memberInput(plan, 0, 10, 2, 5)
	in.Raw[0].Written.Premium = df(8055.55) // 8055.55 * 5% = 402.7775

	calc, _ := commission.CalculateMemberPayout(in)

	if !calc.Snapshot.TotalBeforeRounding.Equal(df(402.7775)) {
		t.Errorf("expected unrounded 402.7775, got %s", calc.Snapshot.TotalBeforeRounding)
	}
	if !calc.TotalPayout.Equal(df(402.78)) {
		t.Errorf("expected rounded 402.78, got %s", calc.TotalPayout)
	}
}

func TestPayout_MonotonicInPremium(t *testing.T) {
	// More premium never pays less, holding everything else fixed.

	plan := standardPlan()
	prev := decimal.Zero
	for _, premium := range []int64{1000, 9999, 10000, 20000, 25000, 50000} {
		calc, _ := commission.CalculateMemberPayout(memberInput(plan, premium, 20, 12, 8))
		if calc.TotalPayout.LessThan(prev) {
			t.Errorf("payout decreased at premium %d: %s < %s", premium, calc.TotalPayout, prev)
		}
		prev = calc.TotalPayout
	}
}
