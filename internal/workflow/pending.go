package workflow

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/civium/permit-review-service/internal/domain"
	"github.com/civium/permit-review-service/internal/observability"
	"github.com/civium/permit-review-service/internal/repository"
)

// PendingWorkQuery is the read-only dashboard projection over workflow states.
// It never mutates state and needs no procedure scope.
type PendingWorkQuery struct {
	workflows repository.WorkflowStateRepository
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewPendingWorkQuery creates the pending-work read model.
func NewPendingWorkQuery(workflows repository.WorkflowStateRepository, metrics *observability.Metrics, logger zerolog.Logger) *PendingWorkQuery {
	return &PendingWorkQuery{
		workflows: workflows,
		metrics:   metrics,
		logger:    logger.With().Str("component", "pending_work_query").Logger(),
	}
}

// DepartmentPendingWork returns the actionable work items of a department,
// oldest first. When userID is set, items assigned to other users are
// excluded while unassigned items remain visible.
func (q *PendingWorkQuery) DepartmentPendingWork(ctx context.Context, departmentID int64, userID *int64) ([]*domain.WorkItem, error) {
	items, err := q.workflows.ListPendingWork(ctx, repository.WorkItemFilter{
		DepartmentID: departmentID,
		UserID:       userID,
	})
	if err != nil {
		return nil, err
	}

	q.metrics.RecordPendingWorkQuery()
	q.logger.Debug().
		Int64("department_id", departmentID).
		Int("items", len(items)).
		Msg("pending work queried")

	return items, nil
}
