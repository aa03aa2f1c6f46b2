/*
handlers.go - HTTP API handlers for the commission payout engine

PURPOSE:
  Exposes the payout engine via REST API. Handles HTTP request/response,
  JSON serialization, input assembly from the store, and delegates the
  actual math to the commission package.

ENDPOINTS:
  Members:
    GET    /api/members                     List roster
    POST   /api/members                     Create/update member

  Plans:
    GET    /api/plans                       List plan configs
    POST   /api/plans                       Create plan from JSON
    GET    /api/plans/{id}                  Get plan config

  Assignments:
    GET    /api/assignments                 List assignments
    POST   /api/assignments                 Assign member to plan
    POST   /api/assignments/{id}/end        End an assignment

  Inputs:
    POST   /api/statements                  Load parsed statement rows
    POST   /api/metrics/self-gen            Load self-gen aggregates
    POST   /api/metrics/brokered            Load brokered aggregates
    PUT    /api/overrides                   Set a manual override
    DELETE /api/overrides/{code}            Remove a manual override

  Payouts:
    POST   /api/payouts/calculate           Run the batch for a period
    POST   /api/payouts/preview             What-if for one member
    GET    /api/payouts                     List payouts for a period
    GET    /api/payouts/{id}/snapshot       Audit detail
    POST   /api/payouts/finalize            draft -> finalized
    POST   /api/payouts/mark-paid           finalized -> paid

REQUEST FLOW:
  1. Parse HTTP request
  2. Assemble engine inputs from the store (roster, plans, metrics)
  3. Run the pure calculation
  4. Persist drafts / serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors
  Calculation-level problems are never HTTP errors; they come back in the
  warnings array alongside the payouts.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/store/sqlite"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	PlanFactory *factory.PlanFactory

	log *zap.Logger

	// Track currently loaded demo scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store and logger.
func NewHandler(store *sqlite.Store, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Store:       store,
		PlanFactory: factory.NewPlanFactory(),
		log:         log.Named("api"),
	}
}

// =============================================================================
// MEMBERS
// =============================================================================

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Store.ListMembers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list members", err)
		return
	}

	dtos := make([]MemberDTO, 0, len(members))
	for _, m := range members {
		dtos = append(dtos, MemberDTO{
			ID:              string(m.ID),
			Name:            m.Name,
			SubProducerCode: m.SubProducerCode,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.SubProducerCode == "" {
		writeError(w, http.StatusBadRequest, "id and sub_producer_code are required", nil)
		return
	}

	member := commission.Member{
		ID:              commission.MemberID(req.ID),
		Name:            req.Name,
		SubProducerCode: req.SubProducerCode,
	}
	if err := h.Store.SaveMember(r.Context(), member); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save member", err)
		return
	}
	writeJSON(w, http.StatusCreated, MemberDTO(req))
}

// =============================================================================
// PLANS
// =============================================================================

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListPlans(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list plans", err)
		return
	}

	dtos := make([]PlanDTO, 0, len(records))
	for _, rec := range records {
		dto := PlanDTO{ID: rec.ID, Name: rec.Name}
		if err := json.Unmarshal([]byte(rec.ConfigJSON), &dto.Config); err != nil {
			h.log.Warn("skipping corrupt plan config",
				zap.String("plan_id", rec.ID), zap.Error(err))
			continue
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var pj factory.PlanJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	plan, warnings, err := h.PlanFactory.FromJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid plan config", err)
		return
	}

	configJSON, err := json.Marshal(pj)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode plan", err)
		return
	}
	record := sqlite.PlanRecord{
		ID:         string(plan.ID),
		Name:       plan.Name,
		ConfigJSON: string(configJSON),
	}
	if err := h.Store.SavePlan(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save plan", err)
		return
	}

	writeJSON(w, http.StatusCreated, PlanDTO{
		ID:       string(plan.ID),
		Name:     plan.Name,
		Config:   pj,
		Warnings: warnings,
	})
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.Store.GetPlan(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load plan", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Plan not found", nil)
		return
	}

	dto := PlanDTO{ID: rec.ID, Name: rec.Name}
	if err := json.Unmarshal([]byte(rec.ConfigJSON), &dto.Config); err != nil {
		writeError(w, http.StatusInternalServerError, "Corrupt plan config", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.Store.ListAssignments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list assignments", err)
		return
	}

	dtos := make([]AssignmentDTO, 0, len(assignments))
	for _, a := range assignments {
		dto := AssignmentDTO{
			ID:        a.ID,
			MemberID:  string(a.MemberID),
			PlanID:    string(a.PlanID),
			StartDate: a.StartDate.Format(time.RFC3339),
			Active:    a.IsActive(),
		}
		if a.EndDate != nil {
			s := a.EndDate.Format(time.RFC3339)
			dto.EndDate = &s
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.MemberID == "" || req.PlanID == "" {
		writeError(w, http.StatusBadRequest, "member_id and plan_id are required", nil)
		return
	}

	start := time.Now().UTC()
	if req.StartDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_date must be RFC3339", err)
			return
		}
		start = parsed
	}

	saved, err := h.Store.SaveAssignment(r.Context(), commission.PlanAssignment{
		MemberID:  commission.MemberID(req.MemberID),
		PlanID:    commission.PlanID(req.PlanID),
		StartDate: start,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save assignment", err)
		return
	}

	writeJSON(w, http.StatusCreated, AssignmentDTO{
		ID:        saved.ID,
		MemberID:  req.MemberID,
		PlanID:    req.PlanID,
		StartDate: start.Format(time.RFC3339),
		Active:    true,
	})
}

func (h *Handler) EndAssignment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.EndAssignment(r.Context(), id, time.Now().UTC()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to end assignment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "ended"})
}

// =============================================================================
// INPUT LOADING - Statement rows, self-gen, brokered, overrides
// =============================================================================

func (h *Handler) LoadStatementRows(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rows []commission.SubProducerMetrics `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	for i, row := range req.Rows {
		if row.SubProducerCode == "" || row.Month == 0 || row.Year == 0 {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("row %d is missing sub_producer_code/month/year", i), nil)
			return
		}
		if err := h.Store.SaveStatementRow(r.Context(), row); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save statement row", err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, map[string]int{"loaded": len(req.Rows)})
}

func (h *Handler) LoadSelfGen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Month   int `json:"month"`
		Year    int `json:"year"`
		Entries []struct {
			MemberID     string `json:"member_id"`
			SelfGenItems string `json:"self_gen_items"`
			Basis        string `json:"basis,omitempty"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	for _, e := range req.Entries {
		items, err := parseDecimal(e.SelfGenItems)
		if err != nil {
			writeError(w, http.StatusBadRequest, "self_gen_items must be numeric", err)
			return
		}
		err = h.Store.SaveSelfGen(r.Context(), commission.MemberID(e.MemberID), req.Month, req.Year,
			commission.SelfGenMetrics{SelfGenItems: items, Basis: commission.MetricBasis(e.Basis)})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save self-gen metrics", err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, map[string]int{"loaded": len(req.Entries)})
}

func (h *Handler) LoadBrokered(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Month   int `json:"month"`
		Year    int `json:"year"`
		Entries []struct {
			MemberID        string `json:"member_id"`
			WrittenItems    string `json:"written_items"`
			WrittenPremium  string `json:"written_premium"`
			WrittenPolicies string `json:"written_policies"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	for _, e := range req.Entries {
		items, err1 := parseDecimal(e.WrittenItems)
		premium, err2 := parseDecimal(e.WrittenPremium)
		policies, err3 := parseDecimal(e.WrittenPolicies)
		if err1 != nil || err2 != nil || err3 != nil {
			writeError(w, http.StatusBadRequest, "brokered figures must be numeric", nil)
			return
		}
		err := h.Store.SaveBrokered(r.Context(), commission.MemberID(e.MemberID), req.Month, req.Year,
			commission.BrokeredMetrics{
				WrittenItems:    items,
				WrittenPremium:  premium,
				WrittenPolicies: policies,
			})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save brokered metrics", err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, map[string]int{"loaded": len(req.Entries)})
}

func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Month    int                       `json:"month"`
		Year     int                       `json:"year"`
		Override commission.ManualOverride `json:"override"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Override.SubProducerCode == "" {
		writeError(w, http.StatusBadRequest, "override.sub_producer_code is required", nil)
		return
	}

	if err := h.Store.SaveOverride(r.Context(), req.Month, req.Year, req.Override); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save override", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *Handler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	month, year, err := periodFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "month and year query params are required", err)
		return
	}

	if err := h.Store.DeleteOverride(r.Context(), code, month, year); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete override", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// PAYOUT CALCULATION
// =============================================================================

// Calculate runs the payout batch for a period and upserts the resulting
// drafts. Warnings ride along in the response, never as HTTP errors.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Month < 1 || req.Month > 12 || req.Year == 0 {
		writeError(w, http.StatusBadRequest, "month (1-12) and year are required", nil)
		return
	}

	input, planWarnings, err := h.assembleBatchInput(r, req.Month, req.Year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to assemble inputs", err)
		return
	}

	result := commission.CalculateAllPayouts(input)
	warnings := append(planWarnings, result.Warnings...)

	saved := 0
	persist := req.Persist == nil || *req.Persist
	if persist {
		for _, calc := range result.Payouts {
			if err := h.Store.UpsertPayout(r.Context(), calc); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to save payouts", err)
				return
			}
			saved++
		}
	}

	h.log.Info("payout batch calculated",
		zap.Int("month", req.Month), zap.Int("year", req.Year),
		zap.Int("payouts", len(result.Payouts)),
		zap.Int("warnings", len(warnings)),
		zap.Bool("persisted", persist))

	dtos := make([]PayoutDTO, 0, len(result.Payouts))
	for _, calc := range result.Payouts {
		dtos = append(dtos, payoutToDTO(calc))
	}
	writeJSON(w, http.StatusOK, CalculateResponse{
		Payouts:  dtos,
		Warnings: warnings,
		Saved:    saved,
	})
}

// Preview recomputes a single member with an optional override, never
// touching persisted data. This is the what-if sandbox.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.MemberID == "" || req.Month < 1 || req.Month > 12 || req.Year == 0 {
		writeError(w, http.StatusBadRequest, "member_id, month (1-12) and year are required", nil)
		return
	}

	member, err := h.Store.GetMember(r.Context(), commission.MemberID(req.MemberID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load member", err)
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "Member not found", nil)
		return
	}

	input, planWarnings, err := h.assembleBatchInput(r, req.Month, req.Year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to assemble inputs", err)
		return
	}

	// Narrow the batch to the one member and splice in the ad hoc
	// override; the stored override for the same code is displaced.
	input.Members = []commission.Member{*member}
	if req.Override != nil {
		kept := input.Overrides[:0]
		for _, o := range input.Overrides {
			if o.SubProducerCode != member.SubProducerCode {
				kept = append(kept, o)
			}
		}
		input.Overrides = append(kept, commission.ManualOverride{
			SubProducerCode: member.SubProducerCode,
			Metrics:         *req.Override,
			Reason:          "preview",
		})
	}

	result := commission.CalculateAllPayouts(input)
	warnings := append(planWarnings, result.Warnings...)

	dtos := make([]PayoutDTO, 0, len(result.Payouts))
	for _, calc := range result.Payouts {
		dtos = append(dtos, payoutToDTO(calc))
	}
	writeJSON(w, http.StatusOK, CalculateResponse{Payouts: dtos, Warnings: warnings})
}

// assembleBatchInput loads everything the engine needs for a period.
// Reads share no mutable state; at expected volumes (tens to low
// hundreds of members) sequential loading is plenty.
func (h *Handler) assembleBatchInput(r *http.Request, month, year int) (commission.BatchInput, []commission.Warning, error) {
	ctx := r.Context()
	input := commission.BatchInput{Month: month, Year: year}
	var planWarnings []commission.Warning

	members, err := h.Store.ListMembers(ctx)
	if err != nil {
		return input, nil, fmt.Errorf("load members: %w", err)
	}
	input.Members = members

	records, err := h.Store.ListPlans(ctx)
	if err != nil {
		return input, nil, fmt.Errorf("load plans: %w", err)
	}
	for _, rec := range records {
		plan, warnings, err := h.PlanFactory.ParsePlan(rec.ConfigJSON)
		if err != nil {
			h.log.Warn("skipping unparseable plan config",
				zap.String("plan_id", rec.ID), zap.Error(err))
			continue
		}
		planWarnings = append(planWarnings, warnings...)
		input.Plans = append(input.Plans, *plan)
	}

	assignments, err := h.Store.ListAssignments(ctx)
	if err != nil {
		return input, nil, fmt.Errorf("load assignments: %w", err)
	}
	input.Assignments = assignments

	input.Raw, err = h.Store.ListStatementRows(ctx, month, year)
	if err != nil {
		return input, nil, fmt.Errorf("load statement rows: %w", err)
	}
	input.SelfGen, err = h.Store.ListSelfGen(ctx, month, year)
	if err != nil {
		return input, nil, fmt.Errorf("load self-gen metrics: %w", err)
	}
	input.Brokered, err = h.Store.ListBrokered(ctx, month, year)
	if err != nil {
		return input, nil, fmt.Errorf("load brokered metrics: %w", err)
	}
	input.Overrides, err = h.Store.ListOverrides(ctx, month, year)
	if err != nil {
		return input, nil, fmt.Errorf("load overrides: %w", err)
	}

	return input, planWarnings, nil
}

// =============================================================================
// PAYOUT QUERIES AND LIFECYCLE
// =============================================================================

func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	month, year, err := periodFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "month and year query params are required", err)
		return
	}

	records, err := h.Store.ListPayouts(r.Context(), month, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payouts", err)
		return
	}

	dtos := make([]PayoutDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, recordToDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPayoutSnapshot returns the stored audit snapshot for one payout.
func (h *Handler) GetPayoutSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.Store.GetPayoutByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load payout", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Payout not found", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rec.SnapshotJSON))
}

func (h *Handler) FinalizePayouts(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Store.FinalizePayouts, commission.StatusFinalized)
}

func (h *Handler) MarkPayoutsPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Store.MarkPayoutsPaid, commission.StatusPaid)
}

func (h *Handler) transition(
	w http.ResponseWriter, r *http.Request,
	step func(ctx context.Context, month, year int) (int64, error),
	to commission.PayoutStatus,
) {
	var req PeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Month < 1 || req.Month > 12 || req.Year == 0 {
		writeError(w, http.StatusBadRequest, "month (1-12) and year are required", nil)
		return
	}

	n, err := step(r.Context(), req.Month, req.Year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to transition payouts", err)
		return
	}

	h.log.Info("payout status transition",
		zap.Int("month", req.Month), zap.Int("year", req.Year),
		zap.String("to", string(to)), zap.Int64("rows", n))

	writeJSON(w, http.StatusOK, TransitionResponse{Transitioned: n, Status: string(to)})
}

// ResetDatabase clears all data. Demo/dev environments only.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

// parseDecimal treats the empty string as zero; metric uploads often
// omit fields that do not apply.
func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func periodFromQuery(r *http.Request) (int, int, error) {
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month")
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year == 0 {
		return 0, 0, fmt.Errorf("invalid year")
	}
	return month, year, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}
