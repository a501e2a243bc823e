// Package domain defines the core types and errors of the featherbox engine.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ConfigInvalidError indicates a structurally invalid configuration.
type ConfigInvalidError struct {
	Message string
}

func (e *ConfigInvalidError) Error() string { return e.Message }

// ErrConfigInvalid creates a ConfigInvalidError with a formatted message.
func ErrConfigInvalid(format string, args ...any) *ConfigInvalidError {
	return &ConfigInvalidError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates a requested resource does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...any) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// UnknownReferenceError indicates a model SQL statement references a
// relation that is neither an adapter nor a model.
type UnknownReferenceError struct {
	Model     string
	Reference string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("model %q references unknown relation %q", e.Model, e.Reference)
}

// CyclicDependencyError carries the node names along the detected cycle,
// starting and ending at the same node.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return "cyclic dependency: " + strings.Join(e.Cycle, " -> ")
}

// StoreError indicates a metadata store operation failed. The enclosing
// operation is rolled back.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("metadata store: %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// ErrStore wraps err as a StoreError for the named operation.
func ErrStore(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// ErrNoGraph is returned by run when no graph has ever been committed.
var ErrNoGraph = errors.New("no committed graph: run `featherbox migrate` first")

// ActionErrorKind classifies a per-action execution failure.
type ActionErrorKind string

// Action error kinds. ConnectionUnavailable and CatalogWriteError are
// retryable; the rest fail the action immediately.
const (
	ErrKindConnectionUnavailable ActionErrorKind = "connection_unavailable"
	ErrKindSourceObjectMissing   ActionErrorKind = "source_object_missing"
	ErrKindSchemaMismatch        ActionErrorKind = "schema_mismatch"
	ErrKindSQLExecution          ActionErrorKind = "sql_execution_error"
	ErrKindCatalogWrite          ActionErrorKind = "catalog_write_error"
	ErrKindUpstreamFailed        ActionErrorKind = "upstream_failed"
	ErrKindCancelled             ActionErrorKind = "cancelled"
	ErrKindDeadlineExceeded      ActionErrorKind = "deadline_exceeded"
)

// ActionError is an execution failure for a single action.
type ActionError struct {
	Kind ActionErrorKind
	Err  error
}

func (e *ActionError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Retryable reports whether the failure class may succeed on retry.
func (e *ActionError) Retryable() bool {
	return e.Kind == ErrKindConnectionUnavailable || e.Kind == ErrKindCatalogWrite
}

// ErrAction wraps err with the given kind.
func ErrAction(kind ActionErrorKind, err error) *ActionError {
	return &ActionError{Kind: kind, Err: err}
}

// ActionErrorFrom extracts an *ActionError from err, defaulting to a
// non-retryable SQL execution error when err carries no classification.
func ActionErrorFrom(err error) *ActionError {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, context.Canceled):
		return &ActionError{Kind: ErrKindCancelled, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &ActionError{Kind: ErrKindDeadlineExceeded, Err: err}
	}
	return &ActionError{Kind: ErrKindSQLExecution, Err: err}
}
