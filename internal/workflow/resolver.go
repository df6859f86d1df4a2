// Package workflow implements the procedure review workflow engine: dependency
// resolution over the per-procedure review graph, the coordinator that applies
// completion events and cascade-unlocks dependents, and the pending-work
// projection used by dashboards.
package workflow

import (
	"github.com/civium/permit-review-service/internal/domain"
)

// Recompute derives can_start_review, dependency_completion_percentage and
// blocking_department_ids for every non-terminal state in the set, in place.
// Terminal states pass through untouched, which keeps their completion
// percentage frozen at the value recorded when they finished.
//
// The computation is deterministic and reads nothing beyond its arguments, so
// calling it twice on an unchanged state set is a no-op.
func Recompute(states []*domain.ReviewWorkflowState, assignments []*domain.RequirementAssignment, procedureType string) {
	statusByDept := make(map[int64]domain.ReviewStatus, len(states))
	for _, state := range states {
		statusByDept[state.DepartmentID] = state.Status
	}

	deps := dependenciesByDepartment(assignments, procedureType)

	for _, state := range states {
		if state.IsTerminal() {
			continue
		}

		dependsOn := deps[state.DepartmentID]
		if len(dependsOn) == 0 {
			state.CanStartReview = true
			state.DependencyCompletionPct = 100
			state.BlockingDepartmentIDs = []int64{}
			continue
		}

		approved := 0
		blocking := make([]int64, 0, len(dependsOn))
		for _, dep := range dependsOn {
			status, ok := statusByDept[dep]
			switch {
			case ok && status == domain.ReviewStatusApproved:
				approved++
			case !ok || !status.IsTerminal():
				// Missing siblings can never approve, so they block too.
				blocking = append(blocking, dep)
			default:
				// Rejected or skipped upstream reviews are dead dependencies:
				// they neither count toward completion nor block downstream
				// work forever.
			}
		}

		state.DependencyCompletionPct = 100 * approved / len(dependsOn)
		state.CanStartReview = approved == len(dependsOn)
		state.BlockingDepartmentIDs = blocking
	}
}
