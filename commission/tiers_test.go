package commission_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func df(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func standardLadder() []commission.Tier {
	return []commission.Tier{
		{Threshold: d(0), Rate: d(5)},
		{Threshold: d(10000), Rate: d(8)},
		{Threshold: d(25000), Rate: d(12)},
	}
}

// =============================================================================
// TIER RESOLUTION TESTS
// =============================================================================

func TestResolveTier_HighestQualifyingThresholdWins(t *testing.T) {
	// GIVEN: A three-rung ladder at 0 / 10000 / 25000
	// WHEN: Resolving a value between the second and third thresholds
	// THEN: The second rung's rate applies

	resolved := commission.ResolveTier(d(15000), standardLadder())

	if resolved == nil {
		t.Fatal("expected a resolved tier, got nil")
	}
	if !resolved.Tier.Rate.Equal(d(8)) {
		t.Errorf("expected rate 8, got %s", resolved.Tier.Rate)
	}
	if resolved.Index != 1 {
		t.Errorf("expected index 1, got %d", resolved.Index)
	}
}

func TestResolveTier_ThresholdIsInclusive(t *testing.T) {
	// GIVEN: A ladder with a rung at exactly 10000
	// WHEN: Resolving a value of exactly 10000
	// THEN: The member qualifies for that rung (lower bound is inclusive)

	resolved := commission.ResolveTier(d(10000), standardLadder())

	if resolved == nil {
		t.Fatal("expected a resolved tier, got nil")
	}
	if !resolved.Tier.Rate.Equal(d(8)) {
		t.Errorf("expected rate 8 at the exact threshold, got %s", resolved.Tier.Rate)
	}
}

func TestResolveTier_BelowLowestThreshold(t *testing.T) {
	// GIVEN: A ladder whose lowest rung starts at 5000
	// WHEN: Resolving a value below it
	// THEN: No tier qualifies

	ladder := []commission.Tier{
		{Threshold: d(5000), Rate: d(5)},
		{Threshold: d(10000), Rate: d(8)},
	}

	if resolved := commission.ResolveTier(d(4999), ladder); resolved != nil {
		t.Errorf("expected nil below the lowest threshold, got rate %s", resolved.Tier.Rate)
	}
}

func TestResolveTier_EmptyLadder(t *testing.T) {
	if resolved := commission.ResolveTier(d(10000), nil); resolved != nil {
		t.Errorf("expected nil for an empty ladder, got %+v", resolved)
	}
}

func TestResolveTier_UnsortedLadderInput(t *testing.T) {
	// GIVEN: A ladder supplied out of order
	// WHEN: Resolving a top-rung value
	// THEN: Resolution sorts internally and still picks the highest rung

	ladder := []commission.Tier{
		{Threshold: d(25000), Rate: d(12)},
		{Threshold: d(0), Rate: d(5)},
		{Threshold: d(10000), Rate: d(8)},
	}

	resolved := commission.ResolveTier(d(30000), ladder)
	if resolved == nil {
		t.Fatal("expected a resolved tier, got nil")
	}
	if !resolved.Tier.Rate.Equal(d(12)) {
		t.Errorf("expected rate 12, got %s", resolved.Tier.Rate)
	}
}

func TestResolveTier_DuplicateThresholds_LaterOccurrenceWins(t *testing.T) {
	// GIVEN: A misconfigured ladder with two rungs at the same threshold
	// WHEN: Resolving a value on that threshold
	// THEN: The later occurrence wins, deterministically

	ladder := []commission.Tier{
		{Threshold: d(0), Rate: d(5)},
		{Threshold: d(10000), Rate: d(8)},
		{Threshold: d(10000), Rate: d(9)},
	}

	resolved := commission.ResolveTier(d(12000), ladder)
	if resolved == nil {
		t.Fatal("expected a resolved tier, got nil")
	}
	if !resolved.Tier.Rate.Equal(d(9)) {
		t.Errorf("expected the later duplicate (rate 9) to win, got %s", resolved.Tier.Rate)
	}
}

func TestResolveTier_MonotonicInValue(t *testing.T) {
	// GIVEN: The standard ladder
	// WHEN: Resolving increasing values
	// THEN: The resolved rate never decreases

	prev := decimal.Zero
	for _, v := range []int64{0, 500, 9999, 10000, 24999, 25000, 100000} {
		resolved := commission.ResolveTier(d(v), standardLadder())
		if resolved == nil {
			t.Fatalf("value %d resolved to no tier", v)
		}
		if resolved.Tier.Rate.LessThan(prev) {
			t.Errorf("rate decreased at value %d: %s < %s", v, resolved.Tier.Rate, prev)
		}
		prev = resolved.Tier.Rate
	}
}

func TestTierAt_OutOfRange(t *testing.T) {
	if tier := commission.TierAt(standardLadder(), -1); tier != nil {
		t.Errorf("expected nil below the floor, got %+v", tier)
	}
	if tier := commission.TierAt(standardLadder(), 3); tier != nil {
		t.Errorf("expected nil above the ceiling, got %+v", tier)
	}
	if tier := commission.TierAt(standardLadder(), 1); tier == nil || !tier.Tier.Rate.Equal(d(8)) {
		t.Errorf("expected the middle rung at index 1, got %+v", tier)
	}
}

// =============================================================================
// BUNDLING MULTIPLIER TESTS
// =============================================================================

func TestResolveMultiplier_SameRuleAsTiers(t *testing.T) {
	// GIVEN: Multipliers at 0% (x1.0) and 50% (x1.1)
	// WHEN: Resolving a 60% bundled share (as a 0-1 fraction)
	// THEN: The 50% threshold's multiplier applies

	multipliers := []commission.BundlingMultiplier{
		{ThresholdPercent: d(0), Multiplier: df(1.0)},
		{ThresholdPercent: d(50), Multiplier: df(1.1)},
	}

	got := commission.ResolveMultiplier(df(0.6), multipliers)
	if !got.Equal(df(1.1)) {
		t.Errorf("expected multiplier 1.1, got %s", got)
	}
}

func TestResolveMultiplier_ExactThresholdQualifies(t *testing.T) {
	multipliers := []commission.BundlingMultiplier{
		{ThresholdPercent: d(50), Multiplier: df(1.1)},
	}

	if got := commission.ResolveMultiplier(df(0.5), multipliers); !got.Equal(df(1.1)) {
		t.Errorf("expected 1.1 at exactly 50%%, got %s", got)
	}
}

func TestResolveMultiplier_DefaultsToOne(t *testing.T) {
	// GIVEN: A ladder whose lowest threshold is above the member's share,
	//        or no ladder at all
	// THEN: The multiplier is a neutral 1.0

	multipliers := []commission.BundlingMultiplier{
		{ThresholdPercent: d(50), Multiplier: df(1.1)},
	}

	if got := commission.ResolveMultiplier(df(0.3), multipliers); !got.Equal(d(1)) {
		t.Errorf("expected 1.0 below the lowest threshold, got %s", got)
	}
	if got := commission.ResolveMultiplier(df(0.9), nil); !got.Equal(d(1)) {
		t.Errorf("expected 1.0 with no ladder, got %s", got)
	}
}
