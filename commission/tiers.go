package commission

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIER RESOLUTION - Highest qualifying threshold wins
// =============================================================================

// ResolvedTier is the outcome of resolving a metric value against a ladder.
// Index is the position in ascending-threshold order, used for tier
// demotion/promotion.
type ResolvedTier struct {
	Tier  Tier
	Index int
}

// SortTiers returns the ladder in ascending threshold order. The sort is
// stable so duplicate thresholds (a config error, flagged by plan
// validation) deterministically resolve to the later occurrence.
func SortTiers(tiers []Tier) []Tier {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Threshold.LessThan(sorted[j].Threshold)
	})
	return sorted
}

// ResolveTier returns the tier with the largest threshold <= value
// (inclusive lower bound), or nil if the value is below the lowest
// threshold or the ladder is empty. Resolution is monotonic in value.
func ResolveTier(value decimal.Decimal, tiers []Tier) *ResolvedTier {
	if len(tiers) == 0 {
		return nil
	}

	sorted := SortTiers(tiers)
	resolved := -1
	for i, t := range sorted {
		if t.Threshold.LessThanOrEqual(value) {
			resolved = i
		}
	}
	if resolved < 0 {
		return nil
	}
	return &ResolvedTier{Tier: sorted[resolved], Index: resolved}
}

// TierAt returns the tier at the given index of the sorted ladder, or nil
// when the index is out of range. Used for demotion (index-1) and
// promotion (index+1).
func TierAt(tiers []Tier, index int) *ResolvedTier {
	if index < 0 || index >= len(tiers) {
		return nil
	}
	sorted := SortTiers(tiers)
	return &ResolvedTier{Tier: sorted[index], Index: index}
}

// ResolveMultiplier applies the same highest-qualifying-threshold,
// inclusive-lower-bound rule to the bundling multiplier ladder
// (kept symmetric with ResolveTier deliberately). Thresholds are on the
// 0-100 percent scale; pct is a 0-1 fraction. Returns 1.0 when nothing
// qualifies or the ladder is empty.
func ResolveMultiplier(pct decimal.Decimal, multipliers []BundlingMultiplier) decimal.Decimal {
	if len(multipliers) == 0 {
		return one
	}

	sorted := make([]BundlingMultiplier, len(multipliers))
	copy(sorted, multipliers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ThresholdPercent.LessThan(sorted[j].ThresholdPercent)
	})

	scaled := pct.Mul(oneHundred)
	result := one
	matched := false
	for _, m := range sorted {
		if m.ThresholdPercent.LessThanOrEqual(scaled) {
			result = m.Multiplier
			matched = true
		}
	}
	if !matched {
		return one
	}
	return result
}
