/*
payout.go - Per-member payout aggregation

PURPOSE:
  Orchestrates the leaf components for one member into a single
  PayoutCalculation. The ordering is load-bearing:

    1. Normalize performance (override substitution, net-of-chargeback)
    2. Fold brokered figures into the primary tier metric, if configured
    3. Resolve the primary tier against the configured metric/basis
    4. Base commission + bundling multiplier
    5. Self-gen penalty and bonus
    6. Brokered commission (independent track, computed exactly once)
    7. Bundle commissions + product spiffs (bonusAmount)
    8. Sum, round once (half away from zero, currency precision)
    9. Capture the calculation snapshot

PAYOUT IDENTITY:
  totalPayout = baseCommission - selfGenPenalty + selfGenBonus
              + brokeredCommission + bonusAmount
  rounded exactly once. Intermediates stay unrounded in the snapshot so
  the payout can be re-derived for audit.

SEE ALSO:
  - batch.go: Fans this out across the roster
  - normalize.go, tiers.go, modifiers.go, brokered.go: The leaves
*/
package commission

import "github.com/shopspring/decimal"

// =============================================================================
// OUTPUT RECORD
// =============================================================================

// PayoutCalculation is the engine's output for one member and period.
// Component amounts are unrounded decimals; TotalPayout carries the
// single currency rounding.
type PayoutCalculation struct {
	MemberID        MemberID `json:"member_id"`
	MemberName      string   `json:"member_name"`
	SubProducerCode string   `json:"sub_producer_code"`
	PlanID          PlanID   `json:"plan_id"`
	PlanName        string   `json:"plan_name"`
	AssignmentID    string   `json:"assignment_id"`
	Month           int      `json:"month"`
	Year            int      `json:"year"`

	Performance MemberPerformance `json:"performance"`

	TierThresholdMet *decimal.Decimal `json:"tier_threshold_met"` // nil: below lowest rung
	TierRate         decimal.Decimal  `json:"tier_rate"`
	TierIndex        int              `json:"tier_index"` // -1 when no tier qualified

	BaseCommission     decimal.Decimal `json:"base_commission"`
	BundlingPercent    decimal.Decimal `json:"bundling_percent"` // 0-1
	BundlingMultiplier decimal.Decimal `json:"bundling_multiplier"`

	SelfGenPercent        decimal.Decimal `json:"self_gen_percent"` // 0-1
	SelfGenMetRequirement bool            `json:"self_gen_met_requirement"`
	SelfGenPenalty        decimal.Decimal `json:"self_gen_penalty"`
	SelfGenBonus          decimal.Decimal `json:"self_gen_bonus"`

	BrokeredCommission decimal.Decimal `json:"brokered_commission"`
	BonusAmount        decimal.Decimal `json:"bonus_amount"`

	TotalPayout decimal.Decimal `json:"total_payout"`
	Status      PayoutStatus    `json:"status"`

	Snapshot CalculationSnapshot `json:"calculation_snapshot"`
}

// CalculationSnapshot freezes every intermediate value of a calculation
// for the audit-detail view. Amounts are unrounded.
type CalculationSnapshot struct {
	Performance MemberPerformance `json:"performance"`

	TierMetric       TierMetric  `json:"tier_metric"`
	TierMetricSource MetricBasis `json:"tier_metric_source"`
	PrimaryTierValue decimal.Decimal `json:"primary_tier_value"`
	BrokeredFolded   bool            `json:"brokered_folded"`
	BrokeredFoldAmount decimal.Decimal `json:"brokered_fold_amount"`
	QualifyingValue  decimal.Decimal `json:"qualifying_value"`

	ResolvedTier *Tier `json:"resolved_tier,omitempty"`
	TierIndex    int   `json:"tier_index"`

	BaseBeforeMultiplier decimal.Decimal `json:"base_before_multiplier"`
	Bundling             BundlingResult  `json:"bundling"`
	BaseCommission       decimal.Decimal `json:"base_commission"`

	SelfGenItems          decimal.Decimal `json:"self_gen_items"`
	SelfGenBasis          MetricBasis     `json:"self_gen_basis"`
	SelfGenPercent        decimal.Decimal `json:"self_gen_percent"`
	SelfGenMetRequirement bool            `json:"self_gen_met_requirement"`
	SelfGenPenalty        decimal.Decimal `json:"self_gen_penalty"`
	SelfGenBonus          decimal.Decimal `json:"self_gen_bonus"`
	DemotedTier           *Tier           `json:"demoted_tier,omitempty"`
	PromotedTier          *Tier           `json:"promoted_tier,omitempty"`

	Brokered BrokeredResult `json:"brokered"`

	BundleCommissions []BundleCommissionLine `json:"bundle_commissions,omitempty"`
	ProductSpiffs     []ProductSpiffLine     `json:"product_spiffs,omitempty"`
	BonusAmount       decimal.Decimal        `json:"bonus_amount"`

	TotalBeforeRounding decimal.Decimal `json:"total_before_rounding"`
	TotalPayout         decimal.Decimal `json:"total_payout"`
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// MemberPayoutInput is everything the aggregator needs for one member.
type MemberPayoutInput struct {
	Member     Member
	Plan       *CompPlan
	Assignment PlanAssignment
	Month      int
	Year       int

	Raw      []SubProducerMetrics
	SelfGen  SelfGenMetrics
	Brokered BrokeredMetrics
	Override *ManualOverride
}

// CalculateMemberPayout computes one member's full payout. Pure; problems
// surface as warnings. A member with zero production is a valid all-zero
// payout, never an omission.
func CalculateMemberPayout(in MemberPayoutInput) (PayoutCalculation, []Warning) {
	plan := in.Plan

	// 1. Normalize performance.
	perf, warnings := NormalizePerformance(in.Member, in.Raw, in.Override)

	// 2. Primary tier metric, with the brokered fold when configured.
	// Folding affects qualification only; base commission figures stay
	// un-folded so brokered business is never paid twice.
	tierValue := primaryTierValue(plan, perf)
	foldAmount := decimal.Zero
	if plan.BrokeredCountsTowardTier {
		foldAmount = BrokeredContribution(plan, in.Brokered)
	}
	qualifying := tierValue.Add(foldAmount)

	// 3. Resolve the primary tier. A member with no production at all
	// qualifies for no tier, even on ladders whose lowest rung starts at
	// zero: their record carries a nil threshold, not the zero rung.
	var resolved *ResolvedTier
	if !qualifying.IsZero() || !perf.Written.IsZero() || !perf.Issued.IsZero() {
		resolved = ResolveTier(qualifying, plan.Tiers)
	}

	// 4-5. Base commission, bundling multiplier, self-gen modifiers.
	bundling := AnalyzeBundling(perf, plan)
	selfGenPct := SelfGenPercent(in.SelfGen, perf, plan)
	mod := ApplyModifiers(ModifierInput{
		Plan:       plan,
		Perf:       perf,
		Resolved:   resolved,
		Bundling:   bundling,
		SelfGenPct: selfGenPct,
	})

	// 6. Brokered commission, independent track.
	brokered := CalculateBrokered(plan, in.Brokered)

	// 7. Bundle commissions and product spiffs make up bonusAmount.
	bundleLines, bundleTotal := BundleCommissions(plan, perf)
	spiffLines, spiffTotal := ProductSpiffs(plan, perf)
	bonusAmount := bundleTotal.Add(spiffTotal)

	// 8. The payout identity, rounded exactly once.
	unrounded := mod.BaseCommission.
		Sub(mod.SelfGenPenalty).
		Add(mod.SelfGenBonus).
		Add(brokered.Commission).
		Add(bonusAmount)
	total := RoundCurrency(unrounded)

	calc := PayoutCalculation{
		MemberID:        in.Member.ID,
		MemberName:      in.Member.Name,
		SubProducerCode: in.Member.SubProducerCode,
		PlanID:          plan.ID,
		PlanName:        plan.Name,
		AssignmentID:    in.Assignment.ID,
		Month:           in.Month,
		Year:            in.Year,

		Performance: perf,

		TierIndex: -1,

		BaseCommission:     mod.BaseCommission,
		BundlingPercent:    bundling.Percent,
		BundlingMultiplier: bundling.Multiplier,

		SelfGenPercent:        selfGenPct,
		SelfGenMetRequirement: mod.SelfGenMetRequirement,
		SelfGenPenalty:        mod.SelfGenPenalty,
		SelfGenBonus:          mod.SelfGenBonus,

		BrokeredCommission: brokered.Commission,
		BonusAmount:        bonusAmount,

		TotalPayout: total,
		Status:      StatusDraft,
	}
	if resolved != nil {
		threshold := resolved.Tier.Threshold
		calc.TierThresholdMet = &threshold
		calc.TierRate = resolved.Tier.Rate
		calc.TierIndex = resolved.Index
	}

	// 9. Snapshot every intermediate.
	calc.Snapshot = buildSnapshot(plan, perf, in.SelfGen, snapshotParts{
		tierValue:  tierValue,
		foldAmount: foldAmount,
		qualifying: qualifying,
		resolved:   resolved,
		bundling:   bundling,
		selfGenPct: selfGenPct,
		mod:        mod,
		brokered:   brokered,
		bundles:    bundleLines,
		spiffs:     spiffLines,
		bonus:      bonusAmount,
		unrounded:  unrounded,
		total:      total,
	})

	return calc, warnings
}

// primaryTierValue picks the production figure the plan qualifies tiers
// against.
func primaryTierValue(plan *CompPlan, perf MemberPerformance) decimal.Decimal {
	figures := perf.FiguresFor(plan.TierMetricSource)
	switch plan.TierMetric {
	case MetricItems:
		return figures.Items
	case MetricPolicies:
		return figures.Policies
	case MetricPoints:
		return perf.Points(plan.TierMetricSource, plan.PointValues)
	default:
		return figures.Premium
	}
}

type snapshotParts struct {
	tierValue  decimal.Decimal
	foldAmount decimal.Decimal
	qualifying decimal.Decimal
	resolved   *ResolvedTier
	bundling   BundlingResult
	selfGenPct decimal.Decimal
	mod        ModifierResult
	brokered   BrokeredResult
	bundles    []BundleCommissionLine
	spiffs     []ProductSpiffLine
	bonus      decimal.Decimal
	unrounded  decimal.Decimal
	total      decimal.Decimal
}

func buildSnapshot(plan *CompPlan, perf MemberPerformance, selfGen SelfGenMetrics, p snapshotParts) CalculationSnapshot {
	snap := CalculationSnapshot{
		Performance: perf,

		TierMetric:         plan.TierMetric,
		TierMetricSource:   plan.TierMetricSource,
		PrimaryTierValue:   p.tierValue,
		BrokeredFolded:     plan.BrokeredCountsTowardTier,
		BrokeredFoldAmount: p.foldAmount,
		QualifyingValue:    p.qualifying,

		TierIndex: -1,

		BaseBeforeMultiplier: p.mod.BaseBeforeMultiplier,
		Bundling:             p.bundling,
		BaseCommission:       p.mod.BaseCommission,

		SelfGenItems:          selfGen.SelfGenItems,
		SelfGenBasis:          selfGen.Basis,
		SelfGenPercent:        p.selfGenPct,
		SelfGenMetRequirement: p.mod.SelfGenMetRequirement,
		SelfGenPenalty:        p.mod.SelfGenPenalty,
		SelfGenBonus:          p.mod.SelfGenBonus,

		Brokered: p.brokered,

		BundleCommissions: p.bundles,
		ProductSpiffs:     p.spiffs,
		BonusAmount:       p.bonus,

		TotalBeforeRounding: p.unrounded,
		TotalPayout:         p.total,
	}

	if p.resolved != nil {
		tier := p.resolved.Tier
		snap.ResolvedTier = &tier
		snap.TierIndex = p.resolved.Index
	}
	if p.mod.DemotedTier != nil {
		tier := p.mod.DemotedTier.Tier
		snap.DemotedTier = &tier
	}
	if p.mod.PromotedTier != nil {
		tier := p.mod.PromotedTier.Tier
		snap.PromotedTier = &tier
	}

	return snap
}
