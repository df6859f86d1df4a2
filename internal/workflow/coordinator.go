package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civium/permit-review-service/internal/domain"
	"github.com/civium/permit-review-service/internal/notify"
	"github.com/civium/permit-review-service/internal/observability"
	"github.com/civium/permit-review-service/internal/repository"
)

// Coordinator orchestrates the public workflow operations. All mutation of
// review workflow states flows through it, inside the per-procedure exclusive
// scope provided by the store, so concurrent completions on one procedure
// serialize and each department is notified of its unlock at most once.
type Coordinator struct {
	store      repository.Store
	workflows  repository.WorkflowStateRepository
	dispatcher notify.Dispatcher
	metrics    *observability.Metrics
	logger     zerolog.Logger

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewCoordinator creates a workflow coordinator. The workflows repository is
// pool-backed and used only for reads outside the procedure scope; every write
// happens through the scoped stores.
func NewCoordinator(
	store repository.Store,
	workflows repository.WorkflowStateRepository,
	dispatcher notify.Dispatcher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		store:      store,
		workflows:  workflows,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger.With().Str("component", "workflow_coordinator").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// InitiateWorkflow instantiates the review graph for a procedure: one workflow
// state per department in the active flow configuration, with initial
// readiness resolved and notifications dispatched for every department that
// can start immediately.
//
// A procedure type with no configured flow yields an empty result and no
// error: no review is required. Re-initiation of an already initiated
// procedure returns domain.ErrAlreadyExists.
func (c *Coordinator) InitiateWorkflow(ctx context.Context, procedureID uuid.UUID) ([]*domain.ReviewWorkflowState, error) {
	var (
		procedure *domain.Procedure
		created   []*domain.ReviewWorkflowState
		ready     []*domain.ReviewWorkflowState
	)

	err := c.store.InProcedureScope(ctx, procedureID, func(stores repository.ScopedStores) error {
		var err error
		procedure, err = stores.Procedures.Get(ctx, procedureID)
		if err != nil {
			return err
		}

		existing, err := stores.Workflows.ListByProcedure(ctx, procedureID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return domain.NewAlreadyExistsError("workflow set", procedureID.String())
		}

		entries, err := stores.Config.ActiveFlow(ctx, procedure.ProcedureType, procedure.MunicipalityID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		assignments, err := stores.Config.AssignmentsForType(ctx, procedure.ProcedureType)
		if err != nil {
			return err
		}

		if err := validateDependencyGraph(entries, assignments, procedure.ProcedureType); err != nil {
			return err
		}

		now := c.now()
		fields := requirementFieldsByDepartment(assignments, procedure.ProcedureType)

		created = make([]*domain.ReviewWorkflowState, 0, len(entries))
		for _, entry := range entries {
			created = append(created, &domain.ReviewWorkflowState{
				ID:                    uuid.New(),
				ProcedureID:           procedureID,
				DepartmentID:          entry.DepartmentID,
				Status:                domain.ReviewStatusPending,
				BlockingDepartmentIDs: []int64{},
				PendingRequirements:   fields[entry.DepartmentID],
				AssignedAt:            now,
				CreatedAt:             now,
				UpdatedAt:             now,
			})
		}

		Recompute(created, assignments, procedure.ProcedureType)

		for _, state := range created {
			if state.CanStartReview {
				state.MarkReady(now)
				ready = append(ready, state)
			}
		}

		return stores.Workflows.CreateBatch(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	if len(created) == 0 {
		c.logger.Info().
			Str("procedure_id", procedureID.String()).
			Msg("no flow configured, procedure requires no review")
		return []*domain.ReviewWorkflowState{}, nil
	}

	c.metrics.RecordWorkflowInitiated(len(created))
	c.logger.Info().
		Str("procedure_id", procedureID.String()).
		Str("procedure_type", procedure.ProcedureType).
		Int("departments", len(created)).
		Int("initially_ready", len(ready)).
		Msg("workflow initiated")

	if len(ready) > 0 {
		c.dispatcher.DispatchReady(ctx, procedure, ready)
	}

	return created, nil
}

// CompleteReview records the terminal outcome of one department's review, then
// recomputes dependency readiness across all sibling states and transitions
// every department that just became unblocked to ready. The newly unblocked
// subset is returned, and exactly that subset is notified.
//
// The never-previously-ready guard on the cascade is what bounds notifications
// to at most one per department per procedure, no matter how many completions
// arrive or in what order.
func (c *Coordinator) CompleteReview(ctx context.Context, workflowID uuid.UUID, outcome domain.ReviewOutcome, reviewerID int64, comments, issues string) ([]*domain.ReviewWorkflowState, error) {
	if !outcome.IsValid() {
		return nil, domain.NewValidationError("outcome", "must be approved, rejected or skipped")
	}
	if reviewerID <= 0 {
		return nil, domain.NewValidationError("reviewer_id", "reviewer ID is required")
	}

	seed, err := c.workflows.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	var (
		procedure  *domain.Procedure
		completed  *domain.ReviewWorkflowState
		newlyReady []*domain.ReviewWorkflowState
	)

	err = c.store.InProcedureScope(ctx, seed.ProcedureID, func(stores repository.ScopedStores) error {
		state, err := stores.Workflows.Get(ctx, workflowID)
		if err != nil {
			return err
		}
		if state.IsTerminal() {
			return domain.NewInvalidStateError(workflowID.String(), state.Status, "complete review")
		}

		procedure, err = stores.Procedures.Get(ctx, state.ProcedureID)
		if err != nil {
			return err
		}

		assignments, err := stores.Config.AssignmentsForType(ctx, procedure.ProcedureType)
		if err != nil {
			return err
		}

		now := c.now()
		state.MarkCompleted(outcome, reviewerID, comments, issues, now)
		if err := stores.Workflows.UpdateIfActive(ctx, state); err != nil {
			return err
		}
		completed = state

		siblings, err := stores.Workflows.ListByProcedure(ctx, state.ProcedureID)
		if err != nil {
			return err
		}

		resolveStart := time.Now()
		Recompute(siblings, assignments, procedure.ProcedureType)

		for _, sibling := range siblings {
			if sibling.IsTerminal() {
				continue
			}
			if sibling.Status == domain.ReviewStatusPending && sibling.CanStartReview && !sibling.HasBeenReady() {
				sibling.MarkReady(now)
				newlyReady = append(newlyReady, sibling)
			} else {
				sibling.UpdatedAt = now
			}
			if err := stores.Workflows.Update(ctx, sibling); err != nil {
				return err
			}
		}

		c.metrics.RecordResolutionPass(time.Since(resolveStart).Seconds())
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.RecordReviewCompleted(string(outcome), completed.Duration().Seconds())
	c.metrics.RecordDepartmentsUnblocked(len(newlyReady))
	c.logger.Info().
		Str("workflow_id", workflowID.String()).
		Str("procedure_id", completed.ProcedureID.String()).
		Str("outcome", string(outcome)).
		Int64("reviewer_id", reviewerID).
		Int("newly_unblocked", len(newlyReady)).
		Msg("review completed")

	if len(newlyReady) > 0 {
		c.dispatcher.DispatchReady(ctx, procedure, newlyReady)
	}

	if newlyReady == nil {
		newlyReady = []*domain.ReviewWorkflowState{}
	}
	return newlyReady, nil
}

// AssignToUser claims a ready or pending workflow for a reviewer, moving it to
// in_review.
func (c *Coordinator) AssignToUser(ctx context.Context, workflowID uuid.UUID, userID int64) (*domain.ReviewWorkflowState, error) {
	if userID <= 0 {
		return nil, domain.NewValidationError("user_id", "user ID is required")
	}

	seed, err := c.workflows.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	var assigned *domain.ReviewWorkflowState
	err = c.store.InProcedureScope(ctx, seed.ProcedureID, func(stores repository.ScopedStores) error {
		state, err := stores.Workflows.Get(ctx, workflowID)
		if err != nil {
			return err
		}
		if !state.Status.IsAssignable() {
			return domain.NewInvalidStateError(workflowID.String(), state.Status, "assign")
		}

		state.MarkInReview(userID, c.now())
		if err := stores.Workflows.UpdateIfActive(ctx, state); err != nil {
			return err
		}
		assigned = state
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.RecordReviewAssigned()
	c.logger.Info().
		Str("workflow_id", workflowID.String()).
		Int64("user_id", userID).
		Msg("review assigned")

	return assigned, nil
}

// ListProcedureWorkflow returns every workflow state of a procedure. The
// procedure must exist; a procedure with no states returns an empty list.
func (c *Coordinator) ListProcedureWorkflow(ctx context.Context, procedureID uuid.UUID) ([]*domain.ReviewWorkflowState, error) {
	states, err := c.workflows.ListByProcedure(ctx, procedureID)
	if err != nil {
		return nil, err
	}
	if states == nil {
		states = []*domain.ReviewWorkflowState{}
	}
	return states, nil
}
