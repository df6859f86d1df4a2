package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidState indicates that an operation was attempted on a workflow
	// whose current status forbids it.
	ErrInvalidState = errors.New("invalid state")

	// ErrConfigurationMissing indicates that no flow configuration exists where
	// one was required.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrDependencyUnsatisfiable indicates that the configured department
	// dependency graph cannot be satisfied (dangling reference or cycle).
	ErrDependencyUnsatisfiable = errors.New("dependency unsatisfiable")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AlreadyExistsError provides details about a duplicate entity.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AlreadyExistsError) Unwrap() error {
	return ErrAlreadyExists
}

// InvalidStateError reports an operation attempted against a workflow in a
// status that forbids it. Current carries the status at the time of the attempt
// so the HTTP layer can include it in the conflict response.
type InvalidStateError struct {
	WorkflowID string
	Current    ReviewStatus
	Operation  string
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("workflow %s: cannot %s in status %q", e.WorkflowID, e.Operation, e.Current)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// DependencyError reports a misconfigured department dependency graph.
type DependencyError struct {
	ProcedureType string
	DepartmentID  int64
	Reason        string
}

// Error implements the error interface.
func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency configuration for procedure type %q, department %d: %s",
		e.ProcedureType, e.DepartmentID, e.Reason)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *DependencyError) Unwrap() error {
	return ErrDependencyUnsatisfiable
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(entity, id string) *AlreadyExistsError {
	return &AlreadyExistsError{Entity: entity, ID: id}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewInvalidStateError creates a new InvalidStateError.
func NewInvalidStateError(workflowID string, current ReviewStatus, operation string) *InvalidStateError {
	return &InvalidStateError{WorkflowID: workflowID, Current: current, Operation: operation}
}
