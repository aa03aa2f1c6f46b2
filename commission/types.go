/*
Package commission provides the core payout calculation engine.

PURPOSE:
  This package contains the types and algorithms for turning a team
  member's raw production for a period (premium, items, policies,
  households, points, bundle/product breakdown, chargebacks) plus their
  assigned compensation plan into a deterministic, auditable payout.

KEY CONCEPTS IN THIS FILE (types.go):
  - CompPlan: The full compensation plan configuration (tier ladders,
    bundling multipliers, self-gen modifiers, brokered track)
  - SubProducerMetrics: Raw production figures keyed by sub-producer code
  - MemberPerformance: Normalized per-member totals used by the engine
  - PayoutCalculation: The computed output, including an audit snapshot
  - Warning: Non-fatal conditions collected instead of thrown

DESIGN PRINCIPLES:
  1. Purity: The engine performs no I/O. Identical inputs always produce
     identical outputs.
  2. Precision: Uses decimal.Decimal for all money and rate math to avoid
     floating-point errors. Rounding happens exactly once, at the end.
  3. Auditability: Every intermediate value is captured in a
     CalculationSnapshot so a payout can be re-derived after the fact.
  4. Resilience: Per-member problems become warnings, never batch failures.

USAGE:
  result := commission.CalculateAllPayouts(commission.BatchInput{
      Month: 3, Year: 2026,
      Members:     members,
      Plans:       plans,
      Assignments: assignments,
      Raw:         statementRows,
      SelfGen:     selfGenByMember,
      Brokered:    brokeredByMember,
  })
  for _, p := range result.Payouts { ... }
  for _, w := range result.Warnings { ... }

SEE ALSO:
  - tiers.go: Rate ladder resolution
  - modifiers.go: Base commission, bundling, self-gen penalty/bonus
  - payout.go: Per-member aggregation and snapshot capture
  - batch.go: Roster fan-out
*/
package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MemberID string
type PlanID string

// =============================================================================
// PLAN CONFIGURATION ENUMS
// =============================================================================

// PayoutType selects the base commission formula.
type PayoutType string

const (
	PayoutPercentOfPremium PayoutType = "percent_of_premium"
	PayoutFlatPerItem      PayoutType = "flat_per_item"
	PayoutFlatPerPolicy    PayoutType = "flat_per_policy"
	PayoutFlatPerHousehold PayoutType = "flat_per_household"
)

// TierMetric selects which production figure qualifies a tier.
type TierMetric string

const (
	MetricPremium  TierMetric = "premium"
	MetricItems    TierMetric = "items"
	MetricPolicies TierMetric = "policies"
	MetricPoints   TierMetric = "points"
)

// MetricBasis selects written (sold) vs issued (carrier-confirmed) figures.
type MetricBasis string

const (
	BasisWritten MetricBasis = "written"
	BasisIssued  MetricBasis = "issued"
)

// PenaltyType is applied when the self-gen requirement is missed.
type PenaltyType string

const (
	PenaltyPercentReduction PenaltyType = "percent_reduction"
	PenaltyFlatReduction    PenaltyType = "flat_reduction"
	PenaltyTierDemotion     PenaltyType = "tier_demotion"
)

// BonusType is applied when the self-gen bonus threshold is met.
type BonusType string

const (
	BonusPercentBoost  BonusType = "percent_boost"
	BonusFlat          BonusType = "flat_bonus"
	BonusPerItem       BonusType = "per_item"
	BonusPerPolicy     BonusType = "per_policy"
	BonusPerHousehold  BonusType = "per_household"
	BonusTierPromotion BonusType = "tier_promotion"
)

// BundleType identifies a multi-line household combination.
type BundleType string

const (
	BundleAutoHome    BundleType = "auto_home"
	BundleAutoRenters BundleType = "auto_renters"
	BundleAutoLife    BundleType = "auto_life"
	BundleHomeLife    BundleType = "home_life"
)

// =============================================================================
// PLAN CONFIGURATION
// =============================================================================

// Tier is one rung of a rate ladder. Rate is a percentage for
// percent_of_premium plans and a currency amount for flat plans.
type Tier struct {
	Threshold decimal.Decimal `json:"threshold"`
	Rate      decimal.Decimal `json:"rate"`
}

// BundlingMultiplier maps a bundled-percentage threshold (0-100) to a
// multiplier applied to the base commission.
type BundlingMultiplier struct {
	ThresholdPercent decimal.Decimal `json:"threshold_percent"`
	Multiplier       decimal.Decimal `json:"multiplier"`
}

// SelfGenRequirement penalizes members below a minimum self-generated
// percentage. MinPercent is on the 0-100 scale.
type SelfGenRequirement struct {
	Enabled     bool            `json:"enabled"`
	MinPercent  decimal.Decimal `json:"min_percent"`
	PenaltyType PenaltyType     `json:"penalty_type"`
	Value       decimal.Decimal `json:"value"`
}

// SelfGenBonus rewards members at or above a minimum self-generated
// percentage. Independent of SelfGenRequirement: the two reference
// different thresholds and may both apply in one calculation.
type SelfGenBonus struct {
	Enabled    bool            `json:"enabled"`
	MinPercent decimal.Decimal `json:"min_percent"`
	BonusType  BonusType       `json:"bonus_type"`
	Value      decimal.Decimal `json:"value"`
}

// CommissionModifiers groups the self-gen rules of a plan.
type CommissionModifiers struct {
	SelfGenRequirement *SelfGenRequirement `json:"self_gen_requirement,omitempty"`
	SelfGenBonus       *SelfGenBonus       `json:"self_gen_bonus,omitempty"`
}

// BundleConfig pays an extra commission for a specific bundle type.
// Either FlatRate or Tiers is used, selected by PayoutType.
type BundleConfig struct {
	Enabled    bool            `json:"enabled"`
	PayoutType PayoutType      `json:"payout_type"`
	FlatRate   decimal.Decimal `json:"flat_rate"`
	Tiers      []Tier          `json:"tiers,omitempty"`
}

// CompPlan is the complete, immutable configuration the engine evaluates.
type CompPlan struct {
	ID   PlanID `json:"id"`
	Name string `json:"name"`

	PayoutType       PayoutType  `json:"payout_type"`
	TierMetric       TierMetric  `json:"tier_metric"`
	TierMetricSource MetricBasis `json:"tier_metric_source"`
	Tiers            []Tier      `json:"tiers"`

	// Brokered-carrier track, independently tiered.
	BrokeredTiers            []Tier           `json:"brokered_tiers,omitempty"`
	BrokeredFlatRate         *decimal.Decimal `json:"brokered_flat_rate,omitempty"`
	BrokeredPayoutType       PayoutType       `json:"brokered_payout_type,omitempty"`
	BrokeredTierMetric       TierMetric       `json:"brokered_tier_metric,omitempty"`
	BrokeredCountsTowardTier bool             `json:"brokered_counts_toward_tier,omitempty"`

	// Extra compensation layers.
	BundleConfigs map[BundleType]BundleConfig `json:"bundle_configs,omitempty"`
	ProductRates  map[string]decimal.Decimal  `json:"product_rates,omitempty"`
	PointValues   map[string]decimal.Decimal  `json:"point_values,omitempty"`

	BundlingMultipliers []BundlingMultiplier `json:"bundling_multipliers,omitempty"`
	Modifiers           CommissionModifiers  `json:"commission_modifiers"`
}

// =============================================================================
// PLAN ASSIGNMENT - Links member to plan
// =============================================================================

// PlanAssignment links a member to a plan. EndDate == nil means active.
// Expected invariant (defensively handled, not assumed): exactly one
// active assignment per member.
type PlanAssignment struct {
	ID        string     `json:"id"`
	MemberID  MemberID   `json:"member_id"`
	PlanID    PlanID     `json:"plan_id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// IsActive reports whether the assignment is currently in force.
func (a PlanAssignment) IsActive() bool {
	return a.EndDate == nil
}

// Member is a roster entry. SubProducerCode keys the member to rows on
// the externally parsed carrier statement.
type Member struct {
	ID              MemberID `json:"id"`
	Name            string   `json:"name"`
	SubProducerCode string   `json:"sub_producer_code"`
}

// =============================================================================
// RAW PRODUCTION INPUTS
// =============================================================================

// Figures is one basis (written or issued) of production totals.
type Figures struct {
	Premium    decimal.Decimal `json:"premium"`
	Items      decimal.Decimal `json:"items"`
	Policies   decimal.Decimal `json:"policies"`
	Households decimal.Decimal `json:"households"`
}

// Add returns the element-wise sum of two figure sets.
func (f Figures) Add(o Figures) Figures {
	return Figures{
		Premium:    f.Premium.Add(o.Premium),
		Items:      f.Items.Add(o.Items),
		Policies:   f.Policies.Add(o.Policies),
		Households: f.Households.Add(o.Households),
	}
}

// IsZero reports whether the figure set carries no production at all.
func (f Figures) IsZero() bool {
	return f.Premium.IsZero() && f.Items.IsZero() &&
		f.Policies.IsZero() && f.Households.IsZero()
}

// BundleProduction is production attributed to one bundle type.
type BundleProduction struct {
	Items     decimal.Decimal `json:"items"`
	Policies  decimal.Decimal `json:"policies"`
	Premium   decimal.Decimal `json:"premium"`
	Household decimal.Decimal `json:"households"`
}

// ProductProduction is production attributed to one product line.
type ProductProduction struct {
	Items   decimal.Decimal `json:"items"`
	Premium decimal.Decimal `json:"premium"`
}

// SubProducerMetrics is one statement row of raw production for a period.
// Immutable input: the engine never mutates it.
type SubProducerMetrics struct {
	SubProducerCode string `json:"sub_producer_code"`
	Month           int    `json:"month"`
	Year            int    `json:"year"`

	Written Figures `json:"written"`
	Issued  Figures `json:"issued"`

	BundledItems    decimal.Decimal `json:"bundled_items"`
	MonolineItems   decimal.Decimal `json:"monoline_items"`
	BundledPremium  decimal.Decimal `json:"bundled_premium"`
	MonolinePremium decimal.Decimal `json:"monoline_premium"`

	ByBundle  map[BundleType]BundleProduction `json:"by_bundle,omitempty"`
	ByProduct map[string]ProductProduction    `json:"by_product,omitempty"`

	ChargebackPremium  decimal.Decimal `json:"chargeback_premium"`
	ChargebackItems    decimal.Decimal `json:"chargeback_items"`
	ChargebackPolicies decimal.Decimal `json:"chargeback_policies"`
}

// ManualOverride substitutes a sub-producer's raw figures entirely,
// for sandbox recalculation without mutating persisted data.
type ManualOverride struct {
	SubProducerCode string             `json:"sub_producer_code"`
	Metrics         SubProducerMetrics `json:"metrics"`
	Reason          string             `json:"reason,omitempty"`
}

// SelfGenMetrics is the pre-computed output of the external self-gen
// classifier for one member.
type SelfGenMetrics struct {
	SelfGenItems decimal.Decimal `json:"self_gen_items"`
	Basis        MetricBasis     `json:"basis"`
}

// BrokeredMetrics is pre-computed brokered-carrier production for one member.
type BrokeredMetrics struct {
	WrittenItems    decimal.Decimal `json:"written_items"`
	WrittenPremium  decimal.Decimal `json:"written_premium"`
	WrittenPolicies decimal.Decimal `json:"written_policies"`
}

// =============================================================================
// PAYOUT STATUS LIFECYCLE
// =============================================================================

// PayoutStatus is one-way: draft -> finalized -> paid. Transitions are
// status-guarded at the persistence layer so a stale recompute can never
// revert a paid record.
type PayoutStatus string

const (
	StatusDraft     PayoutStatus = "draft"
	StatusFinalized PayoutStatus = "finalized"
	StatusPaid      PayoutStatus = "paid"
)

// =============================================================================
// MONEY HELPERS
// =============================================================================

// CurrencyPlaces is the rounding precision for final payout amounts.
const CurrencyPlaces = 2

var (
	oneHundred = decimal.NewFromInt(100)
	one        = decimal.NewFromInt(1)
)

// RoundCurrency rounds half away from zero to currency precision.
// Applied exactly once per payout, at the very end of aggregation.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// SafeRatio returns numerator/denominator, defined as 0 (never NaN or a
// division panic) when the denominator is zero or negative.
func SafeRatio(numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.Sign() <= 0 {
		return decimal.Zero
	}
	return numerator.Div(denominator)
}
