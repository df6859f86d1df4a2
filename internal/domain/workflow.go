package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewWorkflowState is the mutable per-(procedure, department) record tracking
// review progress. Exactly one row exists per pair, created by workflow
// initiation. The workflow coordinator exclusively owns mutation of this entity;
// readiness (pending -> ready) is only ever set by dependency recomputation,
// never directly by a caller.
type ReviewWorkflowState struct {
	ID           uuid.UUID `json:"id"`
	ProcedureID  uuid.UUID `json:"procedure_id"`
	DepartmentID int64     `json:"department_id"`

	Status ReviewStatus `json:"status"`

	// CanStartReview is true iff every configured upstream department has an
	// approved sibling state.
	CanStartReview bool `json:"can_start_review"`

	// DependencyCompletionPct is the derived percentage (0-100) of approved
	// dependencies. Frozen once the state reaches a terminal status.
	DependencyCompletionPct int `json:"dependency_completion_percentage"`

	// BlockingDepartmentIDs is the set of upstream departments currently
	// preventing this review from starting. Empty while CanStartReview is true.
	BlockingDepartmentIDs []int64 `json:"blocking_department_ids"`

	// PendingRequirements lists the requirement field ids owned by this
	// department for the procedure.
	PendingRequirements []int64 `json:"pending_requirements"`

	AssignedUserID *int64 `json:"assigned_user_id,omitempty"`

	ReviewComments string `json:"review_comments,omitempty"`
	IssuesFound    string `json:"issues_found,omitempty"`

	// Lifecycle timestamps. Each is set exactly once and they are monotonically
	// non-decreasing over the state's lifetime.
	AssignedAt  time.Time  `json:"assigned_at"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// validStatusTransitions defines the allowed status transitions for review
// workflow states. Package-level to avoid re-allocating on every call.
var validStatusTransitions = map[ReviewStatus][]ReviewStatus{
	ReviewStatusPending: {
		ReviewStatusReady,
		ReviewStatusInReview,
		ReviewStatusApproved,
		ReviewStatusRejected,
		ReviewStatusSkipped,
	},
	ReviewStatusReady: {
		ReviewStatusInReview,
		ReviewStatusApproved,
		ReviewStatusRejected,
		ReviewStatusSkipped,
	},
	ReviewStatusInReview: {
		ReviewStatusApproved,
		ReviewStatusRejected,
		ReviewStatusSkipped,
	},
}

// IsValidStatusTransition reports whether a workflow state may move from one
// status to another. Terminal statuses have no outgoing transitions.
func IsValidStatusTransition(from, to ReviewStatus) bool {
	for _, allowed := range validStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the workflow state has reached a final status.
func (w *ReviewWorkflowState) IsTerminal() bool {
	return w.Status.IsTerminal()
}

// HasBeenReady returns true if the state has ever reached the ready status.
// The "never previously ready" guard built on this is what guarantees at most
// one unlock notification per department per procedure.
func (w *ReviewWorkflowState) HasBeenReady() bool {
	return w.ReadyAt != nil
}

// MarkReady transitions the state to ready at the given time. The caller must
// have verified CanStartReview and that the state has never been ready before.
func (w *ReviewWorkflowState) MarkReady(now time.Time) {
	w.Status = ReviewStatusReady
	w.ReadyAt = &now
	w.UpdatedAt = now
}

// MarkInReview transitions the state to in_review for the claiming reviewer.
func (w *ReviewWorkflowState) MarkInReview(userID int64, now time.Time) {
	w.Status = ReviewStatusInReview
	w.AssignedUserID = &userID
	w.StartedAt = &now
	w.UpdatedAt = now
}

// MarkCompleted records the terminal outcome of a review. The dependency
// completion percentage is frozen: 100 on approval, 0 on rejection, and the
// current value when the review is skipped.
func (w *ReviewWorkflowState) MarkCompleted(outcome ReviewOutcome, reviewerID int64, comments, issues string, now time.Time) {
	w.Status = outcome.Status()
	w.AssignedUserID = &reviewerID
	w.ReviewComments = comments
	w.IssuesFound = issues
	w.CompletedAt = &now
	w.UpdatedAt = now

	switch outcome {
	case OutcomeApproved:
		w.DependencyCompletionPct = 100
	case OutcomeRejected:
		w.DependencyCompletionPct = 0
	}
}

// Duration returns the elapsed time between a reviewer claiming the work and
// completing it. Returns zero if the review has not started.
func (w *ReviewWorkflowState) Duration() time.Duration {
	if w.StartedAt == nil {
		return 0
	}
	if w.CompletedAt != nil {
		return w.CompletedAt.Sub(*w.StartedAt)
	}
	return time.Since(*w.StartedAt)
}
