/*
batch.go - Roster-wide payout calculation

PURPOSE:
  Runs the per-member aggregator across every member for a period,
  joining each member to exactly one active plan assignment and
  collecting non-fatal warnings along the way.

RESILIENCE RULES:
  - No plans configured at all: empty result + one top-level warning.
  - Member with no active assignment: excluded, warned, batch continues.
  - Multiple active assignments: lowest plan id wins deterministically,
    warning names the member.
  - Any other per-member problem: member skipped with a warning; the
    batch never aborts and never panics outward.

DETERMINISM:
  Reference data is loaded once into id-indexed maps, members are
  processed in input order, and map-backed breakdowns are walked sorted.
  Identical inputs therefore produce identical output arrays.

SEE ALSO:
  - payout.go: The per-member aggregation this fans out
*/
package commission

import (
	"fmt"
	"sort"
)

// BatchInput is the fully assembled input for one period's payout run.
// All data assembly (roster, plans, assignments, statement rows, self-gen
// and brokered aggregates) happens outside the engine; the batch itself
// performs no I/O.
type BatchInput struct {
	Month int
	Year  int

	Members     []Member
	Plans       []CompPlan
	Assignments []PlanAssignment

	// Raw statement rows keyed by sub-producer code, any number per code.
	Raw []SubProducerMetrics

	SelfGen  map[MemberID]SelfGenMetrics
	Brokered map[MemberID]BrokeredMetrics

	Overrides []ManualOverride
}

// BatchResult is the engine's complete output: payouts for every member
// that could be calculated, plus every warning raised along the way.
type BatchResult struct {
	Payouts  []PayoutCalculation `json:"payouts"`
	Warnings []Warning           `json:"warnings"`
}

// CalculateAllPayouts computes payouts for the whole roster. Pure
// function of its input; see the determinism notes above.
func CalculateAllPayouts(in BatchInput) BatchResult {
	var result BatchResult

	if len(in.Plans) == 0 {
		result.Warnings = append(result.Warnings, Warning{
			Code:   WarnNoPlansConfigured,
			Detail: "no compensation plans configured; nothing to calculate",
		})
		return result
	}
	if len(in.Members) == 0 {
		result.Warnings = append(result.Warnings, Warning{
			Code:   WarnNoMembersConfigured,
			Detail: "empty roster; nothing to calculate",
		})
		return result
	}

	// Build-once arena: reference data indexed by id, not re-scanned per
	// member.
	plansByID := make(map[PlanID]*CompPlan, len(in.Plans))
	for i := range in.Plans {
		plansByID[in.Plans[i].ID] = &in.Plans[i]
	}

	rawByCode := make(map[string][]SubProducerMetrics)
	for _, row := range in.Raw {
		if row.Month != in.Month || row.Year != in.Year {
			continue
		}
		rawByCode[row.SubProducerCode] = append(rawByCode[row.SubProducerCode], row)
	}

	overridesByCode := make(map[string]*ManualOverride)
	for i := range in.Overrides {
		o := &in.Overrides[i]
		if _, exists := overridesByCode[o.SubProducerCode]; !exists {
			overridesByCode[o.SubProducerCode] = o
		}
	}

	assignmentsByMember := make(map[MemberID][]PlanAssignment)
	for _, a := range in.Assignments {
		if a.IsActive() {
			assignmentsByMember[a.MemberID] = append(assignmentsByMember[a.MemberID], a)
		}
	}

	for _, member := range in.Members {
		assignment, warns := pickAssignment(member, assignmentsByMember[member.ID])
		result.Warnings = append(result.Warnings, warns...)
		if assignment == nil {
			continue
		}

		plan, ok := plansByID[assignment.PlanID]
		if !ok {
			result.Warnings = append(result.Warnings, Warning{
				Code:     WarnPlanNotFound,
				MemberID: member.ID,
				PlanID:   assignment.PlanID,
				Detail:   "assignment references a plan that does not exist",
			})
			continue
		}

		calc, warns, err := calculateOne(MemberPayoutInput{
			Member:     member,
			Plan:       plan,
			Assignment: *assignment,
			Month:      in.Month,
			Year:       in.Year,
			Raw:        rawByCode[member.SubProducerCode],
			SelfGen:    in.SelfGen[member.ID],
			Brokered:   in.Brokered[member.ID],
			Override:   overridesByCode[member.SubProducerCode],
		})
		result.Warnings = append(result.Warnings, warns...)
		if err != nil {
			// One bad member record never aborts the batch.
			result.Warnings = append(result.Warnings, Warning{
				Code:     WarnMemberSkipped,
				MemberID: member.ID,
				Detail:   err.Error(),
			})
			continue
		}

		result.Payouts = append(result.Payouts, calc)
	}

	return result
}

// pickAssignment joins a member to exactly one active assignment. Zero
// active assignments excludes the member with a warning. More than one is
// an upstream invariant violation, resolved deterministically by lowest
// plan id (then lowest assignment id) with a warning naming the member.
func pickAssignment(member Member, active []PlanAssignment) (*PlanAssignment, []Warning) {
	switch len(active) {
	case 0:
		return nil, []Warning{{
			Code:     WarnNoActiveAssignment,
			MemberID: member.ID,
			Detail:   fmt.Sprintf("member %s (%s) has no active plan assignment", member.ID, member.Name),
		}}
	case 1:
		return &active[0], nil
	}

	sorted := make([]PlanAssignment, len(active))
	copy(sorted, active)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PlanID != sorted[j].PlanID {
			return sorted[i].PlanID < sorted[j].PlanID
		}
		return sorted[i].ID < sorted[j].ID
	})

	return &sorted[0], []Warning{{
		Code:     WarnMultipleActiveAssignments,
		MemberID: member.ID,
		PlanID:   sorted[0].PlanID,
		Detail: fmt.Sprintf("member %s has %d active assignments; using plan %s",
			member.ID, len(active), sorted[0].PlanID),
	}}
}

// calculateOne shields the batch from a panicking member record. The
// engine is pure and should never panic; if malformed data finds a way,
// the member is skipped instead of taking the batch down.
func calculateOne(in MemberPayoutInput) (calc PayoutCalculation, warns []Warning, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("calculation failed: %v", r)
		}
	}()
	calc, warns = CalculateMemberPayout(in)
	return calc, warns, nil
}
