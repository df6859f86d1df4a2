// Package repository provides data access interfaces and implementations
// for the Permit Review Service.
//
// # Overview
//
// This package defines repository interfaces and their PostgreSQL implementations
// following the repository pattern to abstract data persistence from business logic.
//
// # Repository Interfaces
//
// The package provides the following repository interfaces:
//
//   - WorkflowStateRepository: Manages per-(procedure, department) review workflow state
//   - FlowConfigRepository: Reads flow configuration and requirement assignments
//   - ProcedureRepository: Manages procedure persistence
//   - ReviewerDirectory: Resolves departments to eligible reviewers
//
// # Thread Safety
//
// All repository implementations are safe for concurrent use by multiple goroutines.
// The underlying pgxpool handles connection pooling and synchronization.
//
// # Error Handling
//
// All methods return domain-specific errors from the domain package.
// Wrap database errors with context using fmt.Errorf with %w verb.
// Common errors include:
//
//   - domain.ErrNotFound: Resource does not exist
//   - domain.ErrAlreadyExists: Unique constraint violation
//   - domain.ErrInvalidInput: Invalid parameters provided
//   - domain.ErrInvalidState: Write guarded by a status predicate matched no row
//
// # Transactions
//
// Use the DBTX interface to support both pool and transaction contexts.
// The Store type provides a per-procedure exclusive scope that wraps all
// repositories in one transaction holding a procedure-keyed advisory lock.
package repository

import (
	"github.com/civium/permit-review-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
// Repository implementations follow a constructor pattern that accepts DBTX:
//
//	repo := repository.NewPgWorkflowStateRepository(pool)
//
// Passing a pgx.Tx instead of the pool scopes all operations to that
// transaction, which is how Store.InProcedureScope builds its repositories.
type DBTX = database.DBTX

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 100
	maxFilterLimit     = 1000
)

// applyPaginationDefaults normalizes limit and offset values for filter queries.
// It clamps limit to [1, maxFilterLimit] and ensures offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
