/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Batch calculation endpoint (Calculate) over a loaded scenario
- Preview sandbox leaving persisted payouts untouched
- Payout lifecycle endpoints (finalize, mark-paid)
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/warp/commission-engine/store/sqlite"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewHandler(store, nil)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCalculate_StandardAgencyScenario(t *testing.T) {
	// GIVEN: The standard-agency scenario (four producers, one plan)
	// WHEN: Running the batch for the scenario period
	// THEN: Four draft payouts come back and are persisted

	h := newTestHandler(t)
	router := NewRouter(h)

	if err := h.loadStandardAgencyScenario(context.Background()); err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}

	rec := postJSON(t, router, "/api/payouts/calculate",
		map[string]int{"month": scenarioMonth, "year": scenarioYear})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CalculateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Payouts) != 4 {
		t.Fatalf("expected 4 payouts, got %d", len(resp.Payouts))
	}
	if resp.Saved != 4 {
		t.Errorf("expected 4 saved drafts, got %d", resp.Saved)
	}

	// Carol misses the 30% self-gen floor; her payout records the penalty.
	byMember := make(map[string]PayoutDTO)
	for _, p := range resp.Payouts {
		byMember[p.MemberID] = p
	}
	if byMember["mem-carol"].SelfGenMetRequirement {
		t.Error("expected Carol to miss the self-gen requirement")
	}
	if !byMember["mem-ben"].SelfGenMetRequirement {
		t.Error("expected Ben to meet the self-gen requirement")
	}
}

func TestCalculate_InvalidPeriodRejected(t *testing.T) {
	h := newTestHandler(t)
	router := NewRouter(h)

	rec := postJSON(t, router, "/api/payouts/calculate",
		map[string]int{"month": 13, "year": 2026})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for month 13, got %d", rec.Code)
	}
}

func TestPreview_DoesNotTouchPersistedPayouts(t *testing.T) {
	// GIVEN: Persisted drafts from a real batch run
	// WHEN: Previewing one member with substituted figures
	// THEN: The preview result reflects the override but the stored
	//       drafts are unchanged

	h := newTestHandler(t)
	router := NewRouter(h)
	ctx := context.Background()

	if err := h.loadStandardAgencyScenario(ctx); err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}
	rec := postJSON(t, router, "/api/payouts/calculate",
		map[string]int{"month": scenarioMonth, "year": scenarioYear})
	if rec.Code != http.StatusOK {
		t.Fatalf("calculate failed: %d", rec.Code)
	}

	before, err := h.Store.GetPayout(ctx, "mem-alice", scenarioMonth, scenarioYear)
	if err != nil || before == nil {
		t.Fatalf("expected a stored draft for mem-alice: %v", err)
	}

	rec = postJSON(t, router, "/api/payouts/preview", map[string]any{
		"month":     scenarioMonth,
		"year":      scenarioYear,
		"member_id": "mem-alice",
		"override": map[string]any{
			"sub_producer_code": "SP-001",
			"month":             scenarioMonth,
			"year":              scenarioYear,
			"written":           map[string]string{"premium": "30000", "items": "35"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("preview failed: %d: %s", rec.Code, rec.Body.String())
	}

	var resp CalculateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Payouts) != 1 {
		t.Fatalf("expected 1 preview payout, got %d", len(resp.Payouts))
	}
	if resp.Payouts[0].TotalPayout == before.TotalPayout {
		t.Error("preview with substituted figures should differ from the draft")
	}

	after, err := h.Store.GetPayout(ctx, "mem-alice", scenarioMonth, scenarioYear)
	if err != nil {
		t.Fatalf("Failed to reload draft: %v", err)
	}
	if after.TotalPayout != before.TotalPayout || after.UpdatedAt != before.UpdatedAt {
		t.Error("preview must not modify persisted payouts")
	}
}

func TestLifecycleEndpoints(t *testing.T) {
	h := newTestHandler(t)
	router := NewRouter(h)
	ctx := context.Background()

	if err := h.loadStandardAgencyScenario(ctx); err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}
	postJSON(t, router, "/api/payouts/calculate",
		map[string]int{"month": scenarioMonth, "year": scenarioYear})

	rec := postJSON(t, router, "/api/payouts/finalize",
		map[string]int{"month": scenarioMonth, "year": scenarioYear})
	if rec.Code != http.StatusOK {
		t.Fatalf("finalize failed: %d", rec.Code)
	}
	var tr TransitionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if tr.Transitioned != 4 {
		t.Errorf("expected 4 finalized, got %d", tr.Transitioned)
	}

	rec = postJSON(t, router, "/api/payouts/mark-paid",
		map[string]int{"month": scenarioMonth, "year": scenarioYear})
	if rec.Code != http.StatusOK {
		t.Fatalf("mark-paid failed: %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if tr.Transitioned != 4 {
		t.Errorf("expected 4 paid, got %d", tr.Transitioned)
	}
}
