/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's decimal-based domain model from the external API contract:
  money travels as strings (exact), metadata as plain fields.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/plan.go: PlanJSON type embedded in plan payloads
*/
package api

import (
	"encoding/json"

	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/store/sqlite"
)

// =============================================================================
// MEMBERS
// =============================================================================

// MemberDTO represents a roster member in API responses.
type MemberDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	SubProducerCode string `json:"sub_producer_code"`
}

// CreateMemberRequest is the request to create or update a member.
type CreateMemberRequest struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	SubProducerCode string `json:"sub_producer_code"`
}

// =============================================================================
// PLANS / ASSIGNMENTS
// =============================================================================

// PlanDTO represents a plan in API responses, config included.
type PlanDTO struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Config   factory.PlanJSON     `json:"config"`
	Warnings []commission.Warning `json:"warnings,omitempty"`
}

// CreateAssignmentRequest links a member to a plan.
type CreateAssignmentRequest struct {
	MemberID  string `json:"member_id"`
	PlanID    string `json:"plan_id"`
	StartDate string `json:"start_date,omitempty"` // RFC3339; defaults to now
}

// AssignmentDTO represents an assignment in API responses.
type AssignmentDTO struct {
	ID        string  `json:"id"`
	MemberID  string  `json:"member_id"`
	PlanID    string  `json:"plan_id"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date,omitempty"`
	Active    bool    `json:"active"`
}

// =============================================================================
// CALCULATION
// =============================================================================

// CalculateRequest triggers a payout batch for a period.
type CalculateRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`

	// Persist=false runs the batch without touching the payouts table
	// (dry run). Defaults to true.
	Persist *bool `json:"persist,omitempty"`
}

// CalculateResponse carries the full batch output.
type CalculateResponse struct {
	Payouts  []PayoutDTO          `json:"payouts"`
	Warnings []commission.Warning `json:"warnings"`
	Saved    int                  `json:"saved"`
}

// PreviewRequest recomputes one member with substituted figures, without
// persisting anything.
type PreviewRequest struct {
	Month    int                            `json:"month"`
	Year     int                            `json:"year"`
	MemberID string                         `json:"member_id"`
	Override *commission.SubProducerMetrics `json:"override,omitempty"`
}

// PeriodRequest names a payout period for lifecycle transitions.
type PeriodRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// TransitionResponse reports how many rows a lifecycle step touched.
type TransitionResponse struct {
	Transitioned int64  `json:"transitioned"`
	Status       string `json:"status"`
}

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// =============================================================================
// PAYOUTS
// =============================================================================

// PayoutDTO is the list/summary view of a payout. Money fields are exact
// decimal strings.
type PayoutDTO struct {
	ID                    string  `json:"id,omitempty"`
	MemberID              string  `json:"member_id"`
	MemberName            string  `json:"member_name"`
	PlanID                string  `json:"plan_id"`
	PlanName              string  `json:"plan_name"`
	Month                 int     `json:"month"`
	Year                  int     `json:"year"`
	Status                string  `json:"status"`
	TierThresholdMet      *string `json:"tier_threshold_met"`
	TierRate              string  `json:"tier_rate"`
	BaseCommission        string  `json:"base_commission"`
	BundlingPercent       string  `json:"bundling_percent"`
	BundlingMultiplier    string  `json:"bundling_multiplier"`
	SelfGenPercent        string  `json:"self_gen_percent"`
	SelfGenMetRequirement bool    `json:"self_gen_met_requirement"`
	SelfGenPenalty        string  `json:"self_gen_penalty"`
	SelfGenBonus          string  `json:"self_gen_bonus"`
	BrokeredCommission    string  `json:"brokered_commission"`
	BonusAmount           string  `json:"bonus_amount"`
	TotalPayout           string  `json:"total_payout"`
}

func payoutToDTO(calc commission.PayoutCalculation) PayoutDTO {
	dto := PayoutDTO{
		MemberID:              string(calc.MemberID),
		MemberName:            calc.MemberName,
		PlanID:                string(calc.PlanID),
		PlanName:              calc.PlanName,
		Month:                 calc.Month,
		Year:                  calc.Year,
		Status:                string(calc.Status),
		TierRate:              calc.TierRate.String(),
		BaseCommission:        calc.BaseCommission.String(),
		BundlingPercent:       calc.BundlingPercent.String(),
		BundlingMultiplier:    calc.BundlingMultiplier.String(),
		SelfGenPercent:        calc.SelfGenPercent.String(),
		SelfGenMetRequirement: calc.SelfGenMetRequirement,
		SelfGenPenalty:        calc.SelfGenPenalty.String(),
		SelfGenBonus:          calc.SelfGenBonus.String(),
		BrokeredCommission:    calc.BrokeredCommission.String(),
		BonusAmount:           calc.BonusAmount.String(),
		TotalPayout:           calc.TotalPayout.String(),
	}
	if calc.TierThresholdMet != nil {
		s := calc.TierThresholdMet.String()
		dto.TierThresholdMet = &s
	}
	return dto
}

// recordToDTO converts a persisted payout row, preferring the stored
// calculation JSON for the breakdown fields.
func recordToDTO(rec sqlite.PayoutRecord) PayoutDTO {
	var calc commission.PayoutCalculation
	if err := json.Unmarshal([]byte(rec.CalculationJSON), &calc); err == nil {
		dto := payoutToDTO(calc)
		dto.ID = rec.ID
		dto.Status = string(rec.Status)
		return dto
	}

	// Corrupt calculation JSON: fall back to the row's own columns.
	return PayoutDTO{
		ID:          rec.ID,
		MemberID:    rec.MemberID,
		PlanID:      rec.PlanID,
		Month:       rec.Month,
		Year:        rec.Year,
		Status:      string(rec.Status),
		TotalPayout: rec.TotalPayout,
	}
}
