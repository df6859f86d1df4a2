//go:build integration

package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civium/permit-review-service/internal/domain"
	"github.com/civium/permit-review-service/internal/notify"
	"github.com/civium/permit-review-service/internal/observability"
	"github.com/civium/permit-review-service/internal/repository"
	"github.com/civium/permit-review-service/internal/workflow"
)

var metricsSeq int
var metricsSeqMu sync.Mutex

func newCoordinator(t *testing.T) (*workflow.Coordinator, *workflow.PendingWorkQuery) {
	t.Helper()

	metricsSeqMu.Lock()
	metricsSeq++
	namespace := fmt.Sprintf("integration_test_%d", metricsSeq)
	metricsSeqMu.Unlock()

	metrics := observability.NewMetrics(namespace)
	store := repository.NewPgStore(testPool)
	workflowRepo := repository.NewPgWorkflowStateRepository(testPool)
	dispatcher := notify.NewNopDispatcher(zerolog.Nop())

	coordinator := workflow.NewCoordinator(store, workflowRepo, dispatcher, metrics, zerolog.Nop())
	pending := workflow.NewPendingWorkQuery(workflowRepo, metrics, zerolog.Nop())
	return coordinator, pending
}

// seedFlow installs a three-department flow for the given procedure type:
// department 10 first, departments 20 and 30 depending on it.
func seedFlow(t *testing.T, procedureType string, municipalityID int64) {
	t.Helper()
	ctx := context.Background()

	for _, row := range []struct {
		departmentID int64
		stepOrder    int
	}{
		{10, 1}, {20, 2}, {30, 2},
	} {
		_, err := testPool.Exec(ctx, `
			INSERT INTO flow_configurations (procedure_type, municipality_id, department_id, step_order, is_active)
			VALUES ($1, $2, $3, $4, TRUE)`,
			procedureType, municipalityID, row.departmentID, row.stepOrder)
		require.NoError(t, err)
	}

	for _, row := range []struct {
		departmentID int64
		fieldID      int64
		dependsOn    *int64
	}{
		{10, 101, nil},
		{20, 201, int64Ptr(10)},
		{30, 301, int64Ptr(10)},
	} {
		_, err := testPool.Exec(ctx, `
			INSERT INTO requirement_assignments (department_id, procedure_type, field_id, depends_on_department_id, review_priority)
			VALUES ($1, $2, $3, $4, 1)`,
			row.departmentID, procedureType, row.fieldID, row.dependsOn)
		require.NoError(t, err)
	}
}

func seedProcedure(t *testing.T, folio, procedureType string, municipalityID int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := testPool.Exec(context.Background(), `
		INSERT INTO procedures (id, folio, procedure_type, municipality_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, folio, procedureType, municipalityID, time.Now().UTC())
	require.NoError(t, err)
	return id
}

func int64Ptr(v int64) *int64 { return &v }

func stateFor(t *testing.T, states []*domain.ReviewWorkflowState, departmentID int64) *domain.ReviewWorkflowState {
	t.Helper()
	for _, s := range states {
		if s.DepartmentID == departmentID {
			return s
		}
	}
	t.Fatalf("no state for department %d", departmentID)
	return nil
}

func TestWorkflowLifecycle(t *testing.T) {
	cleanTables(t, "review_workflow_states", "procedures", "flow_configurations", "requirement_assignments")
	seedFlow(t, "business_license", 5)
	procedureID := seedProcedure(t, "BL-IT-0001", "business_license", 5)
	coordinator, pending := newCoordinator(t)
	ctx := context.Background()

	// Initiation creates one state per configured department with readiness
	// resolved.
	states, err := coordinator.InitiateWorkflow(ctx, procedureID)
	require.NoError(t, err)
	require.Len(t, states, 3)

	zoning := stateFor(t, states, 10)
	assert.Equal(t, domain.ReviewStatusReady, zoning.Status)
	assert.True(t, zoning.CanStartReview)

	fire := stateFor(t, states, 20)
	assert.Equal(t, domain.ReviewStatusPending, fire.Status)
	assert.Equal(t, []int64{10}, fire.BlockingDepartmentIDs)

	// Re-initiation is rejected.
	_, err = coordinator.InitiateWorkflow(ctx, procedureID)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	// The first department shows up in its pending work queue.
	items, err := pending.DepartmentPendingWork(ctx, 10, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "BL-IT-0001", items[0].ProcedureFolio)

	// Blocked departments have no actionable work yet.
	items, err = pending.DepartmentPendingWork(ctx, 20, nil)
	require.NoError(t, err)
	assert.Empty(t, items)

	// Claiming moves the state to in_review.
	claimed, err := coordinator.AssignToUser(ctx, zoning.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewStatusInReview, claimed.Status)

	// Approval unblocks both dependents.
	unblocked, err := coordinator.CompleteReview(ctx, zoning.ID, domain.OutcomeApproved, 7, "meets requirements", "")
	require.NoError(t, err)
	require.Len(t, unblocked, 2)
	for _, state := range unblocked {
		assert.Equal(t, domain.ReviewStatusReady, state.Status)
		assert.Equal(t, 100, state.DependencyCompletionPct)
		assert.Empty(t, state.BlockingDepartmentIDs)
	}

	// Completing twice is rejected and the stored decision is untouched.
	_, err = coordinator.CompleteReview(ctx, zoning.ID, domain.OutcomeRejected, 9, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	persisted, err := coordinator.ListProcedureWorkflow(ctx, procedureID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewStatusApproved, stateFor(t, persisted, 10).Status)
	assert.Equal(t, "meets requirements", stateFor(t, persisted, 10).ReviewComments)
}

func TestConcurrentCompletionsSerialize(t *testing.T) {
	cleanTables(t, "review_workflow_states", "procedures", "flow_configurations", "requirement_assignments")
	seedFlow(t, "construction_permit", 5)
	procedureID := seedProcedure(t, "CP-IT-0001", "construction_permit", 5)
	coordinator, _ := newCoordinator(t)
	ctx := context.Background()

	states, err := coordinator.InitiateWorkflow(ctx, procedureID)
	require.NoError(t, err)

	_, err = coordinator.CompleteReview(ctx, stateFor(t, states, 10).ID, domain.OutcomeApproved, 7, "", "")
	require.NoError(t, err)

	// Two reviewers complete the sibling departments concurrently. The
	// per-procedure advisory lock serializes the resolution passes, so both
	// must succeed and land in consistent terminal states.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, departmentID := range []int64{20, 30} {
		wg.Add(1)
		go func(i int, departmentID int64) {
			defer wg.Done()
			_, errs[i] = coordinator.CompleteReview(ctx, stateFor(t, states, departmentID).ID, domain.OutcomeApproved, 9, "", "")
		}(i, departmentID)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	persisted, err := coordinator.ListProcedureWorkflow(ctx, procedureID)
	require.NoError(t, err)
	for _, departmentID := range []int64{10, 20, 30} {
		assert.Equal(t, domain.ReviewStatusApproved, stateFor(t, persisted, departmentID).Status)
	}
}

func TestRaceToCompleteSameWorkflow(t *testing.T) {
	cleanTables(t, "review_workflow_states", "procedures", "flow_configurations", "requirement_assignments")
	seedFlow(t, "demolition_permit", 5)
	procedureID := seedProcedure(t, "DM-IT-0001", "demolition_permit", 5)
	coordinator, _ := newCoordinator(t)
	ctx := context.Background()

	states, err := coordinator.InitiateWorkflow(ctx, procedureID)
	require.NoError(t, err)
	zoningID := stateFor(t, states, 10).ID

	// Two reviewers race to decide the same review. Exactly one decision wins;
	// the loser observes the terminal state conflict.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	outcomes := []domain.ReviewOutcome{domain.OutcomeApproved, domain.OutcomeRejected}
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = coordinator.CompleteReview(ctx, zoningID, outcomes[i], int64(i+1), "", "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrInvalidState)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestNoFlowConfigured(t *testing.T) {
	cleanTables(t, "review_workflow_states", "procedures", "flow_configurations", "requirement_assignments")
	procedureID := seedProcedure(t, "GS-IT-0001", "garage_sale", 5)
	coordinator, _ := newCoordinator(t)

	states, err := coordinator.InitiateWorkflow(context.Background(), procedureID)

	require.NoError(t, err)
	assert.Empty(t, states)
}
