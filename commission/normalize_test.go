package commission_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
)

func testMember() commission.Member {
	return commission.Member{
		ID:              "mem-1",
		Name:            "Test Producer",
		SubProducerCode: "SP-100",
	}
}

func row(premium, items int64) commission.SubProducerMetrics {
	return commission.SubProducerMetrics{
		SubProducerCode: "SP-100",
		Month:           3,
		Year:            2026,
		Written: commission.Figures{
			Premium: d(premium),
			Items:   d(items),
		},
	}
}

// =============================================================================
// AGGREGATION TESTS
// =============================================================================

func TestNormalize_MultipleRowsAggregate(t *testing.T) {
	// GIVEN: Two statement rows for the same sub-producer code
	// WHEN: Normalizing
	// THEN: Figures sum across rows

	perf, warnings := commission.NormalizePerformance(testMember(),
		[]commission.SubProducerMetrics{row(6000, 8), row(4000, 5)}, nil)

	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if !perf.Written.Premium.Equal(d(10000)) {
		t.Errorf("expected written premium 10000, got %s", perf.Written.Premium)
	}
	if !perf.Written.Items.Equal(d(13)) {
		t.Errorf("expected written items 13, got %s", perf.Written.Items)
	}
}

func TestNormalize_NoRows_ZeroPerformance(t *testing.T) {
	// GIVEN: A member with no statement rows at all
	// WHEN: Normalizing
	// THEN: A usable all-zero performance, not an error

	perf, warnings := commission.NormalizePerformance(testMember(), nil, nil)

	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if !perf.Written.Premium.IsZero() || !perf.Net.Premium.IsZero() {
		t.Errorf("expected zero figures, got written=%s net=%s",
			perf.Written.Premium, perf.Net.Premium)
	}
}

func TestNormalize_BundleAndProductBreakdownsAggregate(t *testing.T) {
	r1 := row(5000, 6)
	r1.ByBundle = map[commission.BundleType]commission.BundleProduction{
		commission.BundleAutoHome: {Items: d(2), Premium: d(3000)},
	}
	r1.ByProduct = map[string]commission.ProductProduction{
		"auto": {Items: d(4), Premium: d(3500)},
	}
	r2 := row(3000, 4)
	r2.ByBundle = map[commission.BundleType]commission.BundleProduction{
		commission.BundleAutoHome: {Items: d(1), Premium: d(1000)},
	}
	r2.ByProduct = map[string]commission.ProductProduction{
		"auto": {Items: d(2), Premium: d(1500)},
		"life": {Items: d(1), Premium: d(500)},
	}

	perf, _ := commission.NormalizePerformance(testMember(),
		[]commission.SubProducerMetrics{r1, r2}, nil)

	ah := perf.ByBundle[commission.BundleAutoHome]
	if !ah.Items.Equal(d(3)) || !ah.Premium.Equal(d(4000)) {
		t.Errorf("auto_home bundle: expected items=3 premium=4000, got items=%s premium=%s",
			ah.Items, ah.Premium)
	}
	if !perf.ByProduct["auto"].Items.Equal(d(6)) {
		t.Errorf("expected 6 auto items, got %s", perf.ByProduct["auto"].Items)
	}
	if !perf.ByProduct["life"].Items.Equal(d(1)) {
		t.Errorf("expected 1 life item, got %s", perf.ByProduct["life"].Items)
	}
}

// =============================================================================
// OVERRIDE TESTS
// =============================================================================

func TestNormalize_OverrideReplacesRowsEntirely(t *testing.T) {
	// GIVEN: Statement rows and a manual override for the same code
	// WHEN: Normalizing
	// THEN: The override's figures stand alone; raw rows are ignored

	override := &commission.ManualOverride{
		SubProducerCode: "SP-100",
		Metrics:         row(20000, 30),
		Reason:          "sandbox",
	}

	perf, _ := commission.NormalizePerformance(testMember(),
		[]commission.SubProducerMetrics{row(6000, 8)}, override)

	if !perf.OverrideApplied {
		t.Error("expected OverrideApplied to be set")
	}
	if !perf.Written.Premium.Equal(d(20000)) {
		t.Errorf("expected override premium 20000, got %s", perf.Written.Premium)
	}
}

func TestNormalize_OverrideForOtherCodeIsIgnored(t *testing.T) {
	override := &commission.ManualOverride{
		SubProducerCode: "SP-999",
		Metrics:         row(20000, 30),
	}

	perf, _ := commission.NormalizePerformance(testMember(),
		[]commission.SubProducerMetrics{row(6000, 8)}, override)

	if perf.OverrideApplied {
		t.Error("override for a different code must not apply")
	}
	if !perf.Written.Premium.Equal(d(6000)) {
		t.Errorf("expected raw premium 6000, got %s", perf.Written.Premium)
	}
}

// =============================================================================
// CHARGEBACK / CLAMPING TESTS
// =============================================================================

func TestNormalize_NetSubtractsChargebacks(t *testing.T) {
	r := row(10000, 12)
	r.ChargebackPremium = d(1500)
	r.ChargebackItems = d(2)

	perf, warnings := commission.NormalizePerformance(testMember(),
		[]commission.SubProducerMetrics{r}, nil)

	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if !perf.Net.Premium.Equal(d(8500)) {
		t.Errorf("expected net premium 8500, got %s", perf.Net.Premium)
	}
	if !perf.Net.Items.Equal(d(10)) {
		t.Errorf("expected net items 10, got %s", perf.Net.Items)
	}
}

func TestNormalize_NegativeNetClampsToZeroWithWarning(t *testing.T) {
	// GIVEN: Chargebacks exceeding written production
	// WHEN: Normalizing
	// THEN: Net clamps at zero and a warning is emitted; the payout will
	//       be zero, never negative

	r := row(1000, 2)
	r.ChargebackPremium = d(5000)

	perf, warnings := commission.NormalizePerformance(testMember(),
		[]commission.SubProducerMetrics{r}, nil)

	if !perf.Net.Premium.IsZero() {
		t.Errorf("expected net premium clamped to 0, got %s", perf.Net.Premium)
	}
	if !hasWarning(warnings, commission.WarnNegativeNetClamped) {
		t.Errorf("expected a %s warning, got %v", commission.WarnNegativeNetClamped, warnings)
	}
}

func TestNormalize_NegativeRawInputClampsWithWarning(t *testing.T) {
	r := row(5000, 6)
	r.Written.Items = d(-3)

	perf, warnings := commission.NormalizePerformance(testMember(),
		[]commission.SubProducerMetrics{r}, nil)

	if !perf.Written.Items.IsZero() {
		t.Errorf("expected negative items clamped to 0, got %s", perf.Written.Items)
	}
	if !hasWarning(warnings, commission.WarnNegativeInputClamped) {
		t.Errorf("expected a %s warning, got %v", commission.WarnNegativeInputClamped, warnings)
	}
}

// =============================================================================
// POINTS TESTS
// =============================================================================

func TestPoints_WeightedByProductValues(t *testing.T) {
	// GIVEN: 20 auto (x1), 10 home (x1.5), 6 life (x3)
	// WHEN: Computing points
	// THEN: 20 + 15 + 18 = 53

	r := row(18000, 36)
	r.ByProduct = map[string]commission.ProductProduction{
		"auto": {Items: d(20)},
		"home": {Items: d(10)},
		"life": {Items: d(6)},
	}
	perf, _ := commission.NormalizePerformance(testMember(),
		[]commission.SubProducerMetrics{r}, nil)

	values := map[string]decimal.Decimal{
		"auto": d(1), "home": df(1.5), "life": d(3),
	}
	points := perf.Points(commission.BasisWritten, values)
	if !points.Equal(d(53)) {
		t.Errorf("expected 53 points, got %s", points)
	}
}

func TestPoints_UnknownProductDefaultsToOnePerItem(t *testing.T) {
	r := row(5000, 8)
	r.ByProduct = map[string]commission.ProductProduction{
		"umbrella": {Items: d(4)},
	}
	perf, _ := commission.NormalizePerformance(testMember(),
		[]commission.SubProducerMetrics{r}, nil)

	points := perf.Points(commission.BasisWritten, map[string]decimal.Decimal{"auto": d(2)})
	if !points.Equal(d(4)) {
		t.Errorf("expected 4 points (1 per unlisted item), got %s", points)
	}
}

func TestPoints_NoBreakdownFallsBackToItemCount(t *testing.T) {
	perf, _ := commission.NormalizePerformance(testMember(),
		[]commission.SubProducerMetrics{row(5000, 8)}, nil)

	points := perf.Points(commission.BasisWritten, nil)
	if !points.Equal(d(8)) {
		t.Errorf("expected item count 8 as points, got %s", points)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func hasWarning(warnings []commission.Warning, code commission.WarningCode) bool {
	for _, w := range warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
