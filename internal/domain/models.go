// Package domain provides domain models and business logic for the Permit Review Service.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewStatus represents the lifecycle states of a department review workflow.
// These values must match the database enum review_status.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusReady    ReviewStatus = "ready"
	ReviewStatusInReview ReviewStatus = "in_review"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
	ReviewStatusSkipped  ReviewStatus = "skipped"
)

// IsTerminal returns true if the status represents a final state that will not change.
func (s ReviewStatus) IsTerminal() bool {
	switch s {
	case ReviewStatusApproved, ReviewStatusRejected, ReviewStatusSkipped:
		return true
	default:
		return false
	}
}

// IsAssignable returns true if a reviewer may claim a workflow in this status.
func (s ReviewStatus) IsAssignable() bool {
	return s == ReviewStatusPending || s == ReviewStatusReady
}

// ReviewOutcome represents the terminal decision recorded by CompleteReview.
type ReviewOutcome string

const (
	OutcomeApproved ReviewOutcome = "approved"
	OutcomeRejected ReviewOutcome = "rejected"
	OutcomeSkipped  ReviewOutcome = "skipped"
)

// Status returns the terminal ReviewStatus corresponding to the outcome.
func (o ReviewOutcome) Status() ReviewStatus {
	return ReviewStatus(o)
}

// IsValid returns true if the outcome is one of the recognized terminal decisions.
func (o ReviewOutcome) IsValid() bool {
	switch o {
	case OutcomeApproved, OutcomeRejected, OutcomeSkipped:
		return true
	default:
		return false
	}
}

// Procedure is an applicant's permit or license request moving through municipal
// review. Procedures are created by the intake process; the workflow engine only
// reads them.
type Procedure struct {
	ID             uuid.UUID `json:"id"`
	Folio          string    `json:"folio"`
	ProcedureType  string    `json:"procedure_type"`
	MunicipalityID int64     `json:"municipality_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// FlowConfigurationEntry declares that a department participates in the review
// flow for a (procedure_type, municipality) pair, at a nominal step position.
// Read-only to the engine.
type FlowConfigurationEntry struct {
	ID             int64  `json:"id"`
	ProcedureType  string `json:"procedure_type"`
	MunicipalityID int64  `json:"municipality_id"`
	DepartmentID   int64  `json:"department_id"`
	StepOrder      int    `json:"step_order"`
	IsActive       bool   `json:"is_active"`
}

// RequirementAssignment maps a requirement field to the department that reviews
// it for a procedure type, and optionally to an upstream department whose
// approval must precede the review. Read-only to the engine.
type RequirementAssignment struct {
	ID                    int64  `json:"id"`
	DepartmentID          int64  `json:"department_id"`
	ProcedureType         string `json:"procedure_type"`
	FieldID               int64  `json:"field_id"`
	DependsOnDepartmentID *int64 `json:"depends_on_department_id,omitempty"`
	ReviewPriority        int    `json:"review_priority"`
}

// Reviewer is a user eligible to review for a department, used only for
// notification addressing.
type Reviewer struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// WorkItem is the dashboard projection of a workflow state enriched with
// procedure context. It is a read-only DTO; mutating it has no effect on the
// underlying workflow.
type WorkItem struct {
	WorkflowID               uuid.UUID    `json:"workflow_id"`
	ProcedureID              uuid.UUID    `json:"procedure_id"`
	ProcedureFolio           string       `json:"procedure_folio"`
	ProcedureType            string       `json:"procedure_type"`
	DepartmentID             int64        `json:"department_id"`
	Status                   ReviewStatus `json:"status"`
	CanStartReview           bool         `json:"can_start_review"`
	DependencyCompletionPct  int          `json:"dependency_completion_percentage"`
	PendingRequirements      []int64      `json:"pending_requirements"`
	AssignedUserID           *int64       `json:"assigned_user_id,omitempty"`
	AssignedAt               time.Time    `json:"assigned_at"`
}
