/*
normalize.go - Performance normalization

PURPOSE:
  Collapses raw statement rows (possibly several per sub-producer code)
  into one MemberPerformance with total figures for tier qualification
  and a bundle breakdown for rate selection.

RULES:
  - A ManualOverride for the member's sub-producer code replaces the raw
    figures entirely (sandbox recalculation, persisted data untouched).
  - Net figures = written - chargebacks, clamped at zero. Negative net is
    impossible in reality, so clamping emits a warning rather than
    propagating a negative commission.
  - Negative raw inputs (malformed statement data) are clamped to zero
    with a warning.

SEE ALSO:
  - payout.go: Consumes MemberPerformance for aggregation
*/
package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MemberPerformance is the normalized per-member production for a period.
type MemberPerformance struct {
	MemberID        MemberID `json:"member_id"`
	MemberName      string   `json:"member_name"`
	SubProducerCode string   `json:"sub_producer_code"`

	Written Figures `json:"written"`
	Issued  Figures `json:"issued"`

	// Net = written - chargebacks, clamped at zero.
	Net Figures `json:"net"`

	BundledItems    decimal.Decimal `json:"bundled_items"`
	MonolineItems   decimal.Decimal `json:"monoline_items"`
	BundledPremium  decimal.Decimal `json:"bundled_premium"`
	MonolinePremium decimal.Decimal `json:"monoline_premium"`

	ByBundle  map[BundleType]BundleProduction `json:"by_bundle,omitempty"`
	ByProduct map[string]ProductProduction    `json:"by_product,omitempty"`

	ChargebackPremium  decimal.Decimal `json:"chargeback_premium"`
	ChargebackItems    decimal.Decimal `json:"chargeback_items"`
	ChargebackPolicies decimal.Decimal `json:"chargeback_policies"`

	OverrideApplied bool `json:"override_applied"`
}

// FiguresFor returns the figure set the plan's configured basis selects.
// Written-basis plans qualify on net figures (chargebacks already count
// against the producer); issued-basis plans qualify on issued figures,
// which the carrier reports post-cancellation.
func (p MemberPerformance) FiguresFor(basis MetricBasis) Figures {
	if basis == BasisIssued {
		return p.Issued
	}
	return p.Net
}

// Points computes the point total for a points-metric plan. Each product's
// items earn that product's configured point value; products without a
// configured value earn one point per item. With no product breakdown the
// figure-set item count stands in, at one point per item.
func (p MemberPerformance) Points(basis MetricBasis, pointValues map[string]decimal.Decimal) decimal.Decimal {
	if len(p.ByProduct) == 0 {
		return p.FiguresFor(basis).Items
	}

	points := decimal.Zero
	for product, prod := range p.ByProduct {
		value, ok := pointValues[product]
		if !ok {
			value = one
		}
		points = points.Add(prod.Items.Mul(value))
	}
	return points
}

// NormalizePerformance aggregates raw rows for one member and applies the
// manual override when present. Always returns a usable performance
// record; problems surface as warnings.
func NormalizePerformance(member Member, rows []SubProducerMetrics, override *ManualOverride) (MemberPerformance, []Warning) {
	var warnings []Warning

	perf := MemberPerformance{
		MemberID:        member.ID,
		MemberName:      member.Name,
		SubProducerCode: member.SubProducerCode,
		ByBundle:        make(map[BundleType]BundleProduction),
		ByProduct:       make(map[string]ProductProduction),
	}

	source := rows
	if override != nil && override.SubProducerCode == member.SubProducerCode {
		source = []SubProducerMetrics{override.Metrics}
		perf.OverrideApplied = true
	}

	for _, row := range source {
		perf.Written = perf.Written.Add(clampFigures(&warnings, member.ID, "written", row.Written))
		perf.Issued = perf.Issued.Add(clampFigures(&warnings, member.ID, "issued", row.Issued))

		perf.BundledItems = perf.BundledItems.Add(clampValue(&warnings, member.ID, "bundled_items", row.BundledItems))
		perf.MonolineItems = perf.MonolineItems.Add(clampValue(&warnings, member.ID, "monoline_items", row.MonolineItems))
		perf.BundledPremium = perf.BundledPremium.Add(clampValue(&warnings, member.ID, "bundled_premium", row.BundledPremium))
		perf.MonolinePremium = perf.MonolinePremium.Add(clampValue(&warnings, member.ID, "monoline_premium", row.MonolinePremium))

		perf.ChargebackPremium = perf.ChargebackPremium.Add(clampValue(&warnings, member.ID, "chargeback_premium", row.ChargebackPremium))
		perf.ChargebackItems = perf.ChargebackItems.Add(clampValue(&warnings, member.ID, "chargeback_items", row.ChargebackItems))
		perf.ChargebackPolicies = perf.ChargebackPolicies.Add(clampValue(&warnings, member.ID, "chargeback_policies", row.ChargebackPolicies))

		for bt, bp := range row.ByBundle {
			agg := perf.ByBundle[bt]
			agg.Items = agg.Items.Add(bp.Items)
			agg.Policies = agg.Policies.Add(bp.Policies)
			agg.Premium = agg.Premium.Add(bp.Premium)
			agg.Household = agg.Household.Add(bp.Household)
			perf.ByBundle[bt] = agg
		}
		for product, pp := range row.ByProduct {
			agg := perf.ByProduct[product]
			agg.Items = agg.Items.Add(pp.Items)
			agg.Premium = agg.Premium.Add(pp.Premium)
			perf.ByProduct[product] = agg
		}
	}

	perf.Net = netFigures(&warnings, member.ID, perf)

	return perf, warnings
}

// netFigures subtracts chargebacks from written totals, clamping each
// component at zero.
func netFigures(warnings *[]Warning, memberID MemberID, perf MemberPerformance) Figures {
	net := Figures{
		Premium:    perf.Written.Premium.Sub(perf.ChargebackPremium),
		Items:      perf.Written.Items.Sub(perf.ChargebackItems),
		Policies:   perf.Written.Policies.Sub(perf.ChargebackPolicies),
		Households: perf.Written.Households,
	}

	if net.Premium.IsNegative() {
		*warnings = append(*warnings, Warning{
			Code:     WarnNegativeNetClamped,
			MemberID: memberID,
			Detail:   fmt.Sprintf("net premium %s clamped to 0", net.Premium.String()),
		})
		net.Premium = decimal.Zero
	}
	if net.Items.IsNegative() {
		*warnings = append(*warnings, Warning{
			Code:     WarnNegativeNetClamped,
			MemberID: memberID,
			Detail:   fmt.Sprintf("net items %s clamped to 0", net.Items.String()),
		})
		net.Items = decimal.Zero
	}
	if net.Policies.IsNegative() {
		*warnings = append(*warnings, Warning{
			Code:     WarnNegativeNetClamped,
			MemberID: memberID,
			Detail:   fmt.Sprintf("net policies %s clamped to 0", net.Policies.String()),
		})
		net.Policies = decimal.Zero
	}

	return net
}

func clampFigures(warnings *[]Warning, memberID MemberID, field string, f Figures) Figures {
	return Figures{
		Premium:    clampValue(warnings, memberID, field+"_premium", f.Premium),
		Items:      clampValue(warnings, memberID, field+"_items", f.Items),
		Policies:   clampValue(warnings, memberID, field+"_policies", f.Policies),
		Households: clampValue(warnings, memberID, field+"_households", f.Households),
	}
}

func clampValue(warnings *[]Warning, memberID MemberID, field string, v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		*warnings = append(*warnings, Warning{
			Code:     WarnNegativeInputClamped,
			MemberID: memberID,
			Detail:   field,
		})
		return decimal.Zero
	}
	return v
}
