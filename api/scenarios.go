/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates members, plans,
	assignments, and production inputs that demonstrate specific features.

AVAILABLE SCENARIOS:

	standard-agency:  Tiered percent-of-premium plan across a small roster,
	                  showing tier qualification, bundling and the self-gen
	                  penalty in one batch
	brokered-book:    Brokered production on its own ladder, folding into
	                  primary tier qualification
	flat-per-item:    Flat per-item plan with a per-item self-gen bonus
	points-spiffs:    Points-qualified ladder with product spiffs

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create plans via factory presets
 3. Create members and assignments
 4. Load statement rows and self-gen/brokered aggregates

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "standard-agency"}

	then POST /api/payouts/calculate for the scenario period.

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Calculate, lifecycle handlers
  - factory/presets.go: Plan JSON definitions
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/store/sqlite"
)

// Every scenario loads data for this period.
const (
	scenarioMonth = 3
	scenarioYear  = 2026
)

func scenarioStart() time.Time {
	return time.Date(scenarioYear, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "standard-agency",
		Name:        "Standard Agency",
		Description: "Tiered percent-of-premium plan: tier qualification, bundling multiplier, self-gen penalty",
		Category:    "core",
	},
	{
		ID:          "brokered-book",
		Name:        "Brokered Book",
		Description: "Brokered carrier production with its own ladder, folding into primary qualification",
		Category:    "brokered",
	},
	{
		ID:          "flat-per-item",
		Name:        "Flat Per Item",
		Description: "Flat dollar per net item with a per-item self-gen bonus",
		Category:    "core",
	},
	{
		ID:          "points-spiffs",
		Name:        "Points & Spiffs",
		Description: "Points-qualified ladder with per-product point values and life spiffs",
		Category:    "points",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ScenarioID {
	case "standard-agency":
		err = h.loadStandardAgencyScenario(ctx)
	case "brokered-book":
		err = h.loadBrokeredBookScenario(ctx)
	case "flat-per-item":
		err = h.loadFlatPerItemScenario(ctx)
	case "points-spiffs":
		err = h.loadPointsSpiffsScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": req.ScenarioID,
		"month":    scenarioMonth,
		"year":     scenarioYear,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadStandardAgencyScenario(ctx context.Context) error {
	if err := h.savePlanPreset(ctx, factory.StandardTieredPlan("plan-standard", "Standard Producer Plan")); err != nil {
		return err
	}

	// Four producers spanning the ladder:
	//   Alice  below the first paid rung, no bundling
	//   Ben    mid-tier with 60% bundling (multiplier kicks in)
	//   Carol  mid-tier but misses the 30% self-gen floor (penalty)
	//   Dana   top tier
	members := []struct {
		id, name, code string
		premium, items int64
		bundledItems   int64
		selfGenItems   int64
	}{
		{"mem-alice", "Alice Nguyen", "SP-001", 8000, 10, 2, 5},
		{"mem-ben", "Ben Carter", "SP-002", 15000, 20, 12, 8},
		{"mem-carol", "Carol Diaz", "SP-003", 15000, 20, 12, 4},
		{"mem-dana", "Dana Osei", "SP-004", 30000, 35, 20, 14},
	}

	for _, m := range members {
		if err := h.saveMemberOnPlan(ctx, m.id, m.name, m.code, "plan-standard"); err != nil {
			return err
		}

		row := commission.SubProducerMetrics{
			SubProducerCode: m.code,
			Month:           scenarioMonth,
			Year:            scenarioYear,
			Written: commission.Figures{
				Premium:  decimal.NewFromInt(m.premium),
				Items:    decimal.NewFromInt(m.items),
				Policies: decimal.NewFromInt(m.items / 2),
			},
			BundledItems:  decimal.NewFromInt(m.bundledItems),
			MonolineItems: decimal.NewFromInt(m.items - m.bundledItems),
		}
		if err := h.Store.SaveStatementRow(ctx, row); err != nil {
			return err
		}

		err := h.Store.SaveSelfGen(ctx, commission.MemberID(m.id), scenarioMonth, scenarioYear,
			commission.SelfGenMetrics{
				SelfGenItems: decimal.NewFromInt(m.selfGenItems),
				Basis:        commission.BasisWritten,
			})
		if err != nil {
			return err
		}
	}

	return nil
}

func (h *Handler) loadBrokeredBookScenario(ctx context.Context) error {
	if err := h.savePlanPreset(ctx, factory.BrokeredTrackPlan("plan-brokered", "Brokered Track Plan")); err != nil {
		return err
	}
	if err := h.saveMemberOnPlan(ctx, "mem-evan", "Evan Wright", "SP-010", "plan-brokered"); err != nil {
		return err
	}

	// 9k primary premium alone misses the 10k rung; 6k brokered folds in
	// and lifts qualification to the 8% tier while paying on its own ladder.
	row := commission.SubProducerMetrics{
		SubProducerCode: "SP-010",
		Month:           scenarioMonth,
		Year:            scenarioYear,
		Written: commission.Figures{
			Premium:  decimal.NewFromInt(9000),
			Items:    decimal.NewFromInt(12),
			Policies: decimal.NewFromInt(6),
		},
		BundledItems:  decimal.NewFromInt(6),
		MonolineItems: decimal.NewFromInt(6),
	}
	if err := h.Store.SaveStatementRow(ctx, row); err != nil {
		return err
	}

	err := h.Store.SaveBrokered(ctx, "mem-evan", scenarioMonth, scenarioYear,
		commission.BrokeredMetrics{
			WrittenItems:    decimal.NewFromInt(8),
			WrittenPremium:  decimal.NewFromInt(6000),
			WrittenPolicies: decimal.NewFromInt(4),
		})
	if err != nil {
		return err
	}

	return h.Store.SaveSelfGen(ctx, "mem-evan", scenarioMonth, scenarioYear,
		commission.SelfGenMetrics{
			SelfGenItems: decimal.NewFromInt(5),
			Basis:        commission.BasisWritten,
		})
}

func (h *Handler) loadFlatPerItemScenario(ctx context.Context) error {
	if err := h.savePlanPreset(ctx, factory.FlatPerItemPlan("plan-flat", "Flat Per Item Plan")); err != nil {
		return err
	}
	if err := h.saveMemberOnPlan(ctx, "mem-fiona", "Fiona Park", "SP-020", "plan-flat"); err != nil {
		return err
	}

	// 25 items lands on the middle rung; 12 self-gen of 25 clears the 40%
	// bonus floor, adding the per-item kicker.
	row := commission.SubProducerMetrics{
		SubProducerCode: "SP-020",
		Month:           scenarioMonth,
		Year:            scenarioYear,
		Written: commission.Figures{
			Premium:  decimal.NewFromInt(11000),
			Items:    decimal.NewFromInt(25),
			Policies: decimal.NewFromInt(14),
		},
		ChargebackItems: decimal.NewFromInt(2),
	}
	if err := h.Store.SaveStatementRow(ctx, row); err != nil {
		return err
	}

	return h.Store.SaveSelfGen(ctx, "mem-fiona", scenarioMonth, scenarioYear,
		commission.SelfGenMetrics{
			SelfGenItems: decimal.NewFromInt(12),
			Basis:        commission.BasisWritten,
		})
}

func (h *Handler) loadPointsSpiffsScenario(ctx context.Context) error {
	if err := h.savePlanPreset(ctx, factory.PointsPlan("plan-points", "Points Plan")); err != nil {
		return err
	}
	if err := h.saveMemberOnPlan(ctx, "mem-gus", "Gus Moreno", "SP-030", "plan-points"); err != nil {
		return err
	}

	// 20 auto + 10 home + 6 life = 20 + 15 + 18 = 53 points, middle rung.
	// Life items also earn the $10 spiff each.
	row := commission.SubProducerMetrics{
		SubProducerCode: "SP-030",
		Month:           scenarioMonth,
		Year:            scenarioYear,
		Written: commission.Figures{
			Premium:  decimal.NewFromInt(18000),
			Items:    decimal.NewFromInt(36),
			Policies: decimal.NewFromInt(20),
		},
		ByProduct: map[string]commission.ProductProduction{
			"auto": {Items: decimal.NewFromInt(20), Premium: decimal.NewFromInt(9000)},
			"home": {Items: decimal.NewFromInt(10), Premium: decimal.NewFromInt(6000)},
			"life": {Items: decimal.NewFromInt(6), Premium: decimal.NewFromInt(3000)},
		},
	}
	return h.Store.SaveStatementRow(ctx, row)
}

// =============================================================================
// LOADER HELPERS
// =============================================================================

func (h *Handler) savePlanPreset(ctx context.Context, pj factory.PlanJSON) error {
	if _, _, err := h.PlanFactory.FromJSON(pj); err != nil {
		return fmt.Errorf("preset %s is invalid: %w", pj.ID, err)
	}
	configJSON, err := json.Marshal(pj)
	if err != nil {
		return err
	}
	return h.Store.SavePlan(ctx, sqlite.PlanRecord{
		ID:         pj.ID,
		Name:       pj.Name,
		ConfigJSON: string(configJSON),
	})
}

func (h *Handler) saveMemberOnPlan(ctx context.Context, id, name, code, planID string) error {
	err := h.Store.SaveMember(ctx, commission.Member{
		ID:              commission.MemberID(id),
		Name:            name,
		SubProducerCode: code,
	})
	if err != nil {
		return err
	}
	_, err = h.Store.SaveAssignment(ctx, commission.PlanAssignment{
		MemberID:  commission.MemberID(id),
		PlanID:    commission.PlanID(planID),
		StartDate: scenarioStart(),
	})
	return err
}
