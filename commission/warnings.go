package commission

import "fmt"

// =============================================================================
// WARNINGS - Non-fatal conditions surfaced instead of thrown
// =============================================================================

// WarningCode identifies a class of non-fatal calculation condition.
type WarningCode string

const (
	WarnNoActiveAssignment        WarningCode = "no_active_assignment"
	WarnMultipleActiveAssignments WarningCode = "multiple_active_assignments"
	WarnPlanNotFound              WarningCode = "plan_not_found"
	WarnNegativeNetClamped        WarningCode = "negative_net_clamped"
	WarnNegativeInputClamped      WarningCode = "negative_input_clamped"
	WarnDuplicateTierThreshold    WarningCode = "duplicate_tier_threshold"
	WarnNoPlansConfigured         WarningCode = "no_plans_configured"
	WarnNoMembersConfigured       WarningCode = "no_members_configured"
	WarnMemberSkipped             WarningCode = "member_skipped"
	WarnLegacyKickerIgnored       WarningCode = "legacy_kicker_ignored"
)

// Warning records a non-fatal condition encountered during calculation.
// Warnings accumulate; they never abort a batch.
type Warning struct {
	Code     WarningCode `json:"code"`
	MemberID MemberID    `json:"member_id,omitempty"`
	PlanID   PlanID      `json:"plan_id,omitempty"`
	Detail   string      `json:"detail,omitempty"`
}

func (w Warning) String() string {
	s := string(w.Code)
	if w.MemberID != "" {
		s += fmt.Sprintf(" member=%s", w.MemberID)
	}
	if w.PlanID != "" {
		s += fmt.Sprintf(" plan=%s", w.PlanID)
	}
	if w.Detail != "" {
		s += ": " + w.Detail
	}
	return s
}
