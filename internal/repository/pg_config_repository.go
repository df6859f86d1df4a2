package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/civium/permit-review-service/internal/domain"
)

// Compile-time interface verification.
var (
	_ FlowConfigRepository = (*PgFlowConfigRepository)(nil)
	_ ProcedureRepository  = (*PgProcedureRepository)(nil)
	_ ReviewerDirectory    = (*PgReviewerDirectory)(nil)
)

// PgFlowConfigRepository is a PostgreSQL implementation of FlowConfigRepository.
type PgFlowConfigRepository struct {
	db DBTX
}

// NewPgFlowConfigRepository creates a new PostgreSQL flow configuration repository.
func NewPgFlowConfigRepository(db DBTX) *PgFlowConfigRepository {
	return &PgFlowConfigRepository{db: db}
}

// ActiveFlow returns the active flow configuration entries for a
// (procedure_type, municipality) pair, ordered by step order.
func (r *PgFlowConfigRepository) ActiveFlow(ctx context.Context, procedureType string, municipalityID int64) ([]*domain.FlowConfigurationEntry, error) {
	if procedureType == "" {
		return nil, domain.NewValidationError("procedure_type", "procedure type is required")
	}

	query := `
		SELECT id, procedure_type, municipality_id, department_id, step_order, is_active
		FROM flow_configurations
		WHERE procedure_type = $1 AND municipality_id = $2 AND is_active = TRUE
		ORDER BY step_order ASC, department_id ASC`

	rows, err := r.db.Query(ctx, query, procedureType, municipalityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flow configuration: %w", err)
	}
	defer rows.Close()

	var entries []*domain.FlowConfigurationEntry
	for rows.Next() {
		var entry domain.FlowConfigurationEntry
		if err := rows.Scan(
			&entry.ID, &entry.ProcedureType, &entry.MunicipalityID,
			&entry.DepartmentID, &entry.StepOrder, &entry.IsActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flow configuration entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flow configuration: %w", err)
	}

	return entries, nil
}

// AssignmentsForType returns every requirement assignment configured for a
// procedure type, across all departments.
func (r *PgFlowConfigRepository) AssignmentsForType(ctx context.Context, procedureType string) ([]*domain.RequirementAssignment, error) {
	if procedureType == "" {
		return nil, domain.NewValidationError("procedure_type", "procedure type is required")
	}

	query := `
		SELECT id, department_id, procedure_type, field_id, depends_on_department_id, review_priority
		FROM requirement_assignments
		WHERE procedure_type = $1
		ORDER BY department_id ASC, review_priority ASC, field_id ASC`

	rows, err := r.db.Query(ctx, query, procedureType)
	if err != nil {
		return nil, fmt.Errorf("failed to query requirement assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*domain.RequirementAssignment
	for rows.Next() {
		var assignment domain.RequirementAssignment
		if err := rows.Scan(
			&assignment.ID, &assignment.DepartmentID, &assignment.ProcedureType,
			&assignment.FieldID, &assignment.DependsOnDepartmentID, &assignment.ReviewPriority,
		); err != nil {
			return nil, fmt.Errorf("failed to scan requirement assignment: %w", err)
		}
		assignments = append(assignments, &assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requirement assignments: %w", err)
	}

	return assignments, nil
}

// PgProcedureRepository is a PostgreSQL implementation of ProcedureRepository.
type PgProcedureRepository struct {
	db DBTX
}

// NewPgProcedureRepository creates a new PostgreSQL procedure repository.
func NewPgProcedureRepository(db DBTX) *PgProcedureRepository {
	return &PgProcedureRepository{db: db}
}

// Create inserts a new procedure.
func (r *PgProcedureRepository) Create(ctx context.Context, procedure *domain.Procedure) error {
	if procedure == nil {
		return domain.NewValidationError("procedure", "procedure cannot be nil")
	}
	if procedure.ID == uuid.Nil {
		return domain.NewValidationError("id", "procedure ID is required")
	}
	if procedure.Folio == "" {
		return domain.NewValidationError("folio", "folio is required")
	}
	if procedure.ProcedureType == "" {
		return domain.NewValidationError("procedure_type", "procedure type is required")
	}

	query := `
		INSERT INTO procedures (id, folio, procedure_type, municipality_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		procedure.ID, procedure.Folio, procedure.ProcedureType,
		procedure.MunicipalityID, procedure.CreatedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("procedure", procedure.ID.String())
		}
		return fmt.Errorf("failed to create procedure: %w", err)
	}

	return nil
}

// Get retrieves a procedure by its ID.
func (r *PgProcedureRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Procedure, error) {
	query := `
		SELECT id, folio, procedure_type, municipality_id, created_at
		FROM procedures
		WHERE id = $1`

	var procedure domain.Procedure
	err := r.db.QueryRow(ctx, query, id).Scan(
		&procedure.ID, &procedure.Folio, &procedure.ProcedureType,
		&procedure.MunicipalityID, &procedure.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("procedure", id.String())
		}
		return nil, fmt.Errorf("failed to get procedure: %w", err)
	}

	return &procedure, nil
}

// PgReviewerDirectory is a PostgreSQL implementation of ReviewerDirectory
// backed by the department_reviewers table.
type PgReviewerDirectory struct {
	db DBTX
}

// NewPgReviewerDirectory creates a new PostgreSQL reviewer directory.
func NewPgReviewerDirectory(db DBTX) *PgReviewerDirectory {
	return &PgReviewerDirectory{db: db}
}

// EligibleReviewers returns the active reviewers of a department.
func (r *PgReviewerDirectory) EligibleReviewers(ctx context.Context, departmentID int64) ([]*domain.Reviewer, error) {
	if departmentID <= 0 {
		return nil, domain.NewValidationError("department_id", "department ID is required")
	}

	query := `
		SELECT user_id, email, display_name
		FROM department_reviewers
		WHERE department_id = $1 AND is_active = TRUE
		ORDER BY user_id ASC`

	rows, err := r.db.Query(ctx, query, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviewers: %w", err)
	}
	defer rows.Close()

	var reviewers []*domain.Reviewer
	for rows.Next() {
		var reviewer domain.Reviewer
		if err := rows.Scan(&reviewer.UserID, &reviewer.Email, &reviewer.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan reviewer: %w", err)
		}
		reviewers = append(reviewers, &reviewer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviewers: %w", err)
	}

	return reviewers, nil
}
