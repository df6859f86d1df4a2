package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/civium/permit-review-service/internal/domain"
)

// WorkflowStateRepository handles review workflow state persistence.
// Workflow states are mutated exclusively by the workflow coordinator, which
// invokes these methods from within a per-procedure exclusive scope.
type WorkflowStateRepository interface {
	// CreateBatch inserts the full set of workflow states produced by workflow
	// initiation in a single round trip.
	// Returns domain.ErrAlreadyExists if a state for any (procedure, department)
	// pair already exists.
	CreateBatch(ctx context.Context, states []*domain.ReviewWorkflowState) error

	// Get retrieves a workflow state by its ID.
	// Returns domain.ErrNotFound if no matching state exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.ReviewWorkflowState, error)

	// ListByProcedure retrieves every workflow state belonging to a procedure,
	// ordered by department ID for deterministic iteration.
	ListByProcedure(ctx context.Context, procedureID uuid.UUID) ([]*domain.ReviewWorkflowState, error)

	// Update persists the mutable fields of a workflow state.
	// Returns domain.ErrNotFound if no matching state exists.
	Update(ctx context.Context, state *domain.ReviewWorkflowState) error

	// UpdateIfActive persists the mutable fields of a workflow state only while
	// the stored row has not yet reached a terminal status. A write that matches
	// no row because the status guard failed returns domain.ErrInvalidState,
	// which makes a racing double-completion lose cleanly.
	UpdateIfActive(ctx context.Context, state *domain.ReviewWorkflowState) error

	// ListPendingWork returns the dashboard projection of actionable workflow
	// states for a department, enriched with procedure context, ordered by
	// assigned_at ascending (oldest work first).
	ListPendingWork(ctx context.Context, filter WorkItemFilter) ([]*domain.WorkItem, error)
}

// WorkItemFilter specifies criteria for pending-work queries.
type WorkItemFilter struct {
	// DepartmentID filters to one department (required).
	DepartmentID int64

	// UserID, when set, narrows results to states that are unassigned or
	// assigned to this user.
	UserID *int64

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
// Returns domain.ErrInvalidInput if DepartmentID is not positive.
func (f *WorkItemFilter) Validate() error {
	if f.DepartmentID <= 0 {
		return domain.NewValidationError("department_id", "department ID is required")
	}

	applyPaginationDefaults(&f.Limit, &f.Offset)

	return nil
}
