package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/civium/permit-review-service/internal/domain"
)

// FlowConfigRepository reads the static review-flow configuration. The
// workflow engine treats this data as read-only at runtime; administration of
// flow configuration happens outside this service.
type FlowConfigRepository interface {
	// ActiveFlow returns the active flow configuration entries for a
	// (procedure_type, municipality) pair, ordered by step order.
	// An empty result is valid and means no review is required.
	ActiveFlow(ctx context.Context, procedureType string, municipalityID int64) ([]*domain.FlowConfigurationEntry, error)

	// AssignmentsForType returns every requirement assignment configured for a
	// procedure type, across all departments, ordered by department and
	// review priority.
	AssignmentsForType(ctx context.Context, procedureType string) ([]*domain.RequirementAssignment, error)
}

// ProcedureRepository handles procedure persistence. Procedures are created by
// the intake process; the workflow engine only reads them.
type ProcedureRepository interface {
	// Create inserts a new procedure.
	// Returns domain.ErrAlreadyExists if the ID or folio is already taken.
	Create(ctx context.Context, procedure *domain.Procedure) error

	// Get retrieves a procedure by its ID.
	// Returns domain.ErrNotFound if no matching procedure exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.Procedure, error)
}

// ReviewerDirectory resolves a department to the users eligible to review for
// it. Used only for notification addressing.
type ReviewerDirectory interface {
	// EligibleReviewers returns the active reviewers of a department.
	EligibleReviewers(ctx context.Context, departmentID int64) ([]*domain.Reviewer, error)
}
