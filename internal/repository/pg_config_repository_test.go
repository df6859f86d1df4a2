package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civium/permit-review-service/internal/domain"
)

func TestPgFlowConfigRepositoryActiveFlow(t *testing.T) {
	t.Run("returns ordered active entries", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{
			"id", "procedure_type", "municipality_id", "department_id", "step_order", "is_active",
		}).
			AddRow(int64(1), "business_license", int64(5), int64(10), 1, true).
			AddRow(int64(2), "business_license", int64(5), int64(20), 2, true)

		mock.ExpectQuery("SELECT .* FROM flow_configurations WHERE procedure_type = \\$1 AND municipality_id = \\$2").
			WithArgs("business_license", int64(5)).
			WillReturnRows(rows)

		repo := NewPgFlowConfigRepository(mock)
		entries, err := repo.ActiveFlow(context.Background(), "business_license", 5)

		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, int64(10), entries[0].DepartmentID)
		assert.Equal(t, 1, entries[0].StepOrder)
		assert.Equal(t, int64(20), entries[1].DepartmentID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty configuration is a valid result", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{
			"id", "procedure_type", "municipality_id", "department_id", "step_order", "is_active",
		})

		mock.ExpectQuery("SELECT .* FROM flow_configurations").
			WithArgs("garage_sale", int64(5)).
			WillReturnRows(rows)

		repo := NewPgFlowConfigRepository(mock)
		entries, err := repo.ActiveFlow(context.Background(), "garage_sale", 5)

		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty procedure type", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgFlowConfigRepository(mock)
		_, err = repo.ActiveFlow(context.Background(), "", 5)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPgFlowConfigRepositoryAssignmentsForType(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dependsOn := int64(10)
	rows := pgxmock.NewRows([]string{
		"id", "department_id", "procedure_type", "field_id", "depends_on_department_id", "review_priority",
	}).
		AddRow(int64(1), int64(10), "business_license", int64(101), (*int64)(nil), 1).
		AddRow(int64(2), int64(20), "business_license", int64(201), &dependsOn, 1)

	mock.ExpectQuery("SELECT .* FROM requirement_assignments WHERE procedure_type = \\$1").
		WithArgs("business_license").
		WillReturnRows(rows)

	repo := NewPgFlowConfigRepository(mock)
	assignments, err := repo.AssignmentsForType(context.Background(), "business_license")

	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Nil(t, assignments[0].DependsOnDepartmentID)
	require.NotNil(t, assignments[1].DependsOnDepartmentID)
	assert.Equal(t, int64(10), *assignments[1].DependsOnDepartmentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgProcedureRepositoryCreate(t *testing.T) {
	t.Run("inserts procedure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		procedure := &domain.Procedure{
			ID:             uuid.New(),
			Folio:          "BL-2026-0042",
			ProcedureType:  "business_license",
			MunicipalityID: 5,
			CreatedAt:      time.Now().UTC(),
		}

		mock.ExpectExec("INSERT INTO procedures").
			WithArgs(procedure.ID, procedure.Folio, procedure.ProcedureType,
				procedure.MunicipalityID, procedure.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := NewPgProcedureRepository(mock)
		err = repo.Create(context.Background(), procedure)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns AlreadyExists on duplicate", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		procedure := &domain.Procedure{
			ID:             uuid.New(),
			Folio:          "BL-2026-0042",
			ProcedureType:  "business_license",
			MunicipalityID: 5,
			CreatedAt:      time.Now().UTC(),
		}

		mock.ExpectExec("INSERT INTO procedures").
			WithArgs(procedure.ID, procedure.Folio, procedure.ProcedureType,
				procedure.MunicipalityID, procedure.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

		repo := NewPgProcedureRepository(mock)
		err = repo.Create(context.Background(), procedure)

		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects missing folio", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgProcedureRepository(mock)
		err = repo.Create(context.Background(), &domain.Procedure{ID: uuid.New()})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPgProcedureRepositoryGet(t *testing.T) {
	t.Run("returns procedure by id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := uuid.New()
		now := time.Now().UTC()
		rows := pgxmock.NewRows([]string{"id", "folio", "procedure_type", "municipality_id", "created_at"}).
			AddRow(id, "BL-2026-0042", "business_license", int64(5), now)

		mock.ExpectQuery("SELECT .* FROM procedures WHERE id = \\$1").
			WithArgs(id).
			WillReturnRows(rows)

		repo := NewPgProcedureRepository(mock)
		procedure, err := repo.Get(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, "BL-2026-0042", procedure.Folio)
		assert.Equal(t, int64(5), procedure.MunicipalityID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns NotFound for missing procedure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := uuid.New()
		mock.ExpectQuery("SELECT .* FROM procedures WHERE id = \\$1").
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		repo := NewPgProcedureRepository(mock)
		_, err = repo.Get(context.Background(), id)

		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgReviewerDirectoryEligibleReviewers(t *testing.T) {
	t.Run("returns active reviewers", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"user_id", "email", "display_name"}).
			AddRow(int64(7), "zoning.lead@city.example", "Zoning Lead").
			AddRow(int64(9), "zoning.clerk@city.example", "Zoning Clerk")

		mock.ExpectQuery("SELECT user_id, email, display_name FROM department_reviewers").
			WithArgs(int64(10)).
			WillReturnRows(rows)

		directory := NewPgReviewerDirectory(mock)
		reviewers, err := directory.EligibleReviewers(context.Background(), 10)

		require.NoError(t, err)
		require.Len(t, reviewers, 2)
		assert.Equal(t, int64(7), reviewers[0].UserID)
		assert.Equal(t, "zoning.clerk@city.example", reviewers[1].Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects invalid department", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		directory := NewPgReviewerDirectory(mock)
		_, err = directory.EligibleReviewers(context.Background(), 0)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
