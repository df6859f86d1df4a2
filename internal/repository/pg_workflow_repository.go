package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/civium/permit-review-service/internal/domain"
)

// PostgreSQL error codes used for constraint violation detection.
const (
	pgUniqueViolation     = "23505" // unique_violation
	pgForeignKeyViolation = "23503" // foreign_key_violation
)

// workflowStateColumns is the canonical column list shared by every SELECT on
// review_workflow_states. Scan destinations in workflowScanDest must stay in
// the same order.
const workflowStateColumns = `id, procedure_id, department_id, status,
		can_start_review, dependency_completion_percentage,
		blocking_department_ids, pending_requirements,
		assigned_user_id, review_comments, issues_found,
		assigned_at, ready_at, started_at, completed_at,
		created_at, updated_at`

// Compile-time interface verification.
var _ WorkflowStateRepository = (*PgWorkflowStateRepository)(nil)

// PgWorkflowStateRepository is a PostgreSQL implementation of WorkflowStateRepository.
type PgWorkflowStateRepository struct {
	db DBTX
}

// NewPgWorkflowStateRepository creates a new PostgreSQL workflow state repository.
func NewPgWorkflowStateRepository(db DBTX) *PgWorkflowStateRepository {
	return &PgWorkflowStateRepository{db: db}
}

// CreateBatch inserts the full set of workflow states for a procedure in one
// batched round trip.
func (r *PgWorkflowStateRepository) CreateBatch(ctx context.Context, states []*domain.ReviewWorkflowState) error {
	if len(states) == 0 {
		return nil
	}

	query := `
		INSERT INTO review_workflow_states (
			id, procedure_id, department_id, status,
			can_start_review, dependency_completion_percentage,
			blocking_department_ids, pending_requirements,
			assigned_user_id, review_comments, issues_found,
			assigned_at, ready_at, started_at, completed_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8,
			$9, $10, $11,
			$12, $13, $14, $15,
			$16, $17
		)`

	batch := &pgx.Batch{}
	for _, state := range states {
		if state.ID == uuid.Nil {
			return domain.NewValidationError("id", "workflow state ID is required")
		}
		if state.ProcedureID == uuid.Nil {
			return domain.NewValidationError("procedure_id", "procedure ID is required")
		}
		if state.DepartmentID <= 0 {
			return domain.NewValidationError("department_id", "department ID is required")
		}

		blockingJSON, err := marshalIDList(state.BlockingDepartmentIDs)
		if err != nil {
			return fmt.Errorf("failed to marshal blocking departments: %w", err)
		}
		requirementsJSON, err := marshalIDList(state.PendingRequirements)
		if err != nil {
			return fmt.Errorf("failed to marshal pending requirements: %w", err)
		}

		batch.Queue(query,
			state.ID, state.ProcedureID, state.DepartmentID, state.Status,
			state.CanStartReview, state.DependencyCompletionPct,
			blockingJSON, requirementsJSON,
			state.AssignedUserID, state.ReviewComments, state.IssuesFound,
			state.AssignedAt, state.ReadyAt, state.StartedAt, state.CompletedAt,
			state.CreatedAt, state.UpdatedAt,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for _, state := range states {
		if _, err := results.Exec(); err != nil {
			if isPgUniqueViolation(err) {
				return domain.NewAlreadyExistsError("workflow state", state.ID.String())
			}
			if isPgForeignKeyViolation(err) {
				return domain.NewNotFoundError("procedure", state.ProcedureID.String())
			}
			return fmt.Errorf("failed to create workflow state: %w", err)
		}
	}

	return nil
}

// Get retrieves a workflow state by its ID.
func (r *PgWorkflowStateRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ReviewWorkflowState, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM review_workflow_states
		WHERE id = $1`, workflowStateColumns)

	row := r.db.QueryRow(ctx, query, id)
	state, err := scanWorkflowState(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("workflow", id.String())
		}
		return nil, fmt.Errorf("failed to get workflow state: %w", err)
	}

	return state, nil
}

// ListByProcedure retrieves every workflow state belonging to a procedure.
func (r *PgWorkflowStateRepository) ListByProcedure(ctx context.Context, procedureID uuid.UUID) ([]*domain.ReviewWorkflowState, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM review_workflow_states
		WHERE procedure_id = $1
		ORDER BY department_id ASC`, workflowStateColumns)

	rows, err := r.db.Query(ctx, query, procedureID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow states: %w", err)
	}
	defer rows.Close()

	var states []*domain.ReviewWorkflowState
	for rows.Next() {
		state, err := scanWorkflowStateFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow state: %w", err)
		}
		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow states: %w", err)
	}

	return states, nil
}

// Update persists the mutable fields of a workflow state.
func (r *PgWorkflowStateRepository) Update(ctx context.Context, state *domain.ReviewWorkflowState) error {
	result, err := r.exec(ctx, state, "")
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("workflow", state.ID.String())
	}
	return nil
}

// UpdateIfActive persists the mutable fields of a workflow state only while
// the stored row is still non-terminal. The status guard makes a racing
// double-completion lose cleanly instead of overwriting a recorded outcome.
func (r *PgWorkflowStateRepository) UpdateIfActive(ctx context.Context, state *domain.ReviewWorkflowState) error {
	guard := fmt.Sprintf("AND status NOT IN ('%s', '%s', '%s')",
		domain.ReviewStatusApproved, domain.ReviewStatusRejected, domain.ReviewStatusSkipped)

	result, err := r.exec(ctx, state, guard)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("workflow %s is no longer active: %w", state.ID, domain.ErrInvalidState)
	}
	return nil
}

// exec runs the shared UPDATE statement with an optional extra WHERE guard.
func (r *PgWorkflowStateRepository) exec(ctx context.Context, state *domain.ReviewWorkflowState, guard string) (pgconn.CommandTag, error) {
	blockingJSON, err := marshalIDList(state.BlockingDepartmentIDs)
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("failed to marshal blocking departments: %w", err)
	}
	requirementsJSON, err := marshalIDList(state.PendingRequirements)
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("failed to marshal pending requirements: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE review_workflow_states SET
			status = $1,
			can_start_review = $2,
			dependency_completion_percentage = $3,
			blocking_department_ids = $4,
			pending_requirements = $5,
			assigned_user_id = $6,
			review_comments = $7,
			issues_found = $8,
			ready_at = $9,
			started_at = $10,
			completed_at = $11,
			updated_at = $12
		WHERE id = $13 %s`, guard)

	result, err := r.db.Exec(ctx, query,
		state.Status,
		state.CanStartReview,
		state.DependencyCompletionPct,
		blockingJSON,
		requirementsJSON,
		state.AssignedUserID,
		state.ReviewComments,
		state.IssuesFound,
		state.ReadyAt,
		state.StartedAt,
		state.CompletedAt,
		state.UpdatedAt,
		state.ID,
	)
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("failed to update workflow state: %w", err)
	}

	return result, nil
}

// ListPendingWork returns the dashboard projection of actionable workflow
// states for a department, joined with procedure context.
func (r *PgWorkflowStateRepository) ListPendingWork(ctx context.Context, filter WorkItemFilter) ([]*domain.WorkItem, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	conditions := []string{
		"w.department_id = $1",
		fmt.Sprintf("w.status IN ('%s', '%s')", domain.ReviewStatusReady, domain.ReviewStatusInReview),
	}
	args := []interface{}{filter.DepartmentID}
	argIndex := 2

	if filter.UserID != nil {
		conditions = append(conditions,
			fmt.Sprintf("(w.assigned_user_id IS NULL OR w.assigned_user_id = $%d)", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT w.id, w.procedure_id, p.folio, p.procedure_type,
			w.department_id, w.status, w.can_start_review,
			w.dependency_completion_percentage, w.pending_requirements,
			w.assigned_user_id, w.assigned_at
		FROM review_workflow_states w
		JOIN procedures p ON p.id = w.procedure_id
		WHERE %s
		ORDER BY w.assigned_at ASC
		LIMIT $%d OFFSET $%d`,
		strings.Join(conditions, " AND "), argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending work: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.WorkItem, 0, filter.Limit)
	for rows.Next() {
		var item domain.WorkItem
		var requirementsJSON []byte

		if err := rows.Scan(
			&item.WorkflowID, &item.ProcedureID, &item.ProcedureFolio, &item.ProcedureType,
			&item.DepartmentID, &item.Status, &item.CanStartReview,
			&item.DependencyCompletionPct, &requirementsJSON,
			&item.AssignedUserID, &item.AssignedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan work item: %w", err)
		}

		if len(requirementsJSON) > 0 {
			if err := json.Unmarshal(requirementsJSON, &item.PendingRequirements); err != nil {
				return nil, fmt.Errorf("failed to unmarshal pending requirements: %w", err)
			}
		}

		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating work items: %w", err)
	}

	return items, nil
}

// isPgUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// isPgForeignKeyViolation checks if the error is a PostgreSQL foreign key violation.
func isPgForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return false
}

// marshalIDList serializes an id slice as JSONB, normalizing nil to an empty array.
func marshalIDList(ids []int64) ([]byte, error) {
	if ids == nil {
		ids = []int64{}
	}
	return json.Marshal(ids)
}

// workflowScanDest holds the destination pointers for scanning a ReviewWorkflowState row.
// This eliminates code duplication between pgx.Row and pgx.Rows scanning.
type workflowScanDest struct {
	state            domain.ReviewWorkflowState
	blockingJSON     []byte
	requirementsJSON []byte
}

// destinations returns the slice of pointers for Scan operations, matching
// workflowStateColumns order.
func (d *workflowScanDest) destinations() []interface{} {
	return []interface{}{
		&d.state.ID, &d.state.ProcedureID, &d.state.DepartmentID, &d.state.Status,
		&d.state.CanStartReview, &d.state.DependencyCompletionPct,
		&d.blockingJSON, &d.requirementsJSON,
		&d.state.AssignedUserID, &d.state.ReviewComments, &d.state.IssuesFound,
		&d.state.AssignedAt, &d.state.ReadyAt, &d.state.StartedAt, &d.state.CompletedAt,
		&d.state.CreatedAt, &d.state.UpdatedAt,
	}
}

// finalize performs post-scan processing: unmarshals the JSONB id lists.
func (d *workflowScanDest) finalize() (*domain.ReviewWorkflowState, error) {
	if len(d.blockingJSON) > 0 {
		if err := json.Unmarshal(d.blockingJSON, &d.state.BlockingDepartmentIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal blocking departments: %w", err)
		}
	}
	if len(d.requirementsJSON) > 0 {
		if err := json.Unmarshal(d.requirementsJSON, &d.state.PendingRequirements); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pending requirements: %w", err)
		}
	}
	return &d.state, nil
}

// scanWorkflowState scans a single row into a ReviewWorkflowState.
func scanWorkflowState(row pgx.Row) (*domain.ReviewWorkflowState, error) {
	var dest workflowScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// scanWorkflowStateFromRows scans the current row from pgx.Rows into a ReviewWorkflowState.
func scanWorkflowStateFromRows(rows pgx.Rows) (*domain.ReviewWorkflowState, error) {
	var dest workflowScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
