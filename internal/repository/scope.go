package repository

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/civium/permit-review-service/internal/database"
)

// ScopedStores bundles the repositories available inside a per-procedure
// exclusive scope. All of them share one transaction.
type ScopedStores struct {
	Workflows  WorkflowStateRepository
	Config     FlowConfigRepository
	Procedures ProcedureRepository
}

// Store provides the per-procedure exclusive scope required by the workflow
// coordinator. The scope spans load, dependency resolution, and persistence
// for one procedure, so concurrent completions on the same procedure
// serialize while different procedures proceed in parallel.
type Store interface {
	// InProcedureScope runs fn inside a transaction holding an advisory lock
	// keyed on the procedure ID. The transaction commits only if fn returns
	// nil; any error rolls back every write made inside the scope.
	InProcedureScope(ctx context.Context, procedureID uuid.UUID, fn func(ScopedStores) error) error
}

// TxBeginner is the subset of *pgxpool.Pool needed to open a scope.
// pgxmock pools satisfy it as well, which keeps the scope testable.
type TxBeginner = database.TxBeginner

// Compile-time interface verification.
var _ Store = (*PgStore)(nil)

// PgStore implements Store over a PostgreSQL connection pool using
// transaction-scoped advisory locks.
type PgStore struct {
	db TxBeginner
}

// NewPgStore creates a new PostgreSQL-backed procedure scope provider.
func NewPgStore(db TxBeginner) *PgStore {
	return &PgStore{db: db}
}

// InProcedureScope runs fn inside a transaction holding a procedure-keyed
// advisory lock. The lock is released automatically when the transaction ends.
func (s *PgStore) InProcedureScope(ctx context.Context, procedureID uuid.UUID, fn func(ScopedStores) error) error {
	return database.WithTransaction(ctx, s.db, func(tx pgx.Tx) error {
		if err := database.AcquireAdvisoryLockTx(ctx, tx, advisoryLockKey(procedureID)); err != nil {
			return fmt.Errorf("failed to acquire procedure lock: %w", err)
		}

		return fn(ScopedStores{
			Workflows:  NewPgWorkflowStateRepository(tx),
			Config:     NewPgFlowConfigRepository(tx),
			Procedures: NewPgProcedureRepository(tx),
		})
	})
}

// advisoryLockKey derives a stable 64-bit advisory lock key from a procedure ID.
func advisoryLockKey(procedureID uuid.UUID) int64 {
	h := fnv.New64a()
	_, _ = h.Write(procedureID[:])
	return int64(h.Sum64())
}
