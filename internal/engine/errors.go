package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/featherbox/featherbox/internal/domain"
)

// Classify maps a raw DuckDB error onto an action error kind by message
// inspection; the driver exposes no structured codes for most failures.
// Unrecognized errors default to the non-retryable SQL execution kind.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return domain.ErrAction(domain.ErrKindCancelled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrAction(domain.ErrKindDeadlineExceeded, err)
	}

	msg := err.Error()
	switch {
	case containsAny(msg,
		"No files found",
		"no files found",
		"No such file or directory",
		"Could not read file",
		"does not exist"):
		return domain.ErrAction(domain.ErrKindSourceObjectMissing, err)
	case containsAny(msg,
		"Connection refused",
		"connection refused",
		"Could not establish connection",
		"Connection timed out",
		"Connection error",
		"Unable to connect"):
		return domain.ErrAction(domain.ErrKindConnectionUnavailable, err)
	case containsAny(msg,
		"type mismatch",
		"Type Mismatch",
		"not found in table",
		"Mismatch between the number of columns",
		"Conversion Error",
		"schema mismatch"):
		return domain.ErrAction(domain.ErrKindSchemaMismatch, err)
	case containsAny(msg,
		"Failed to commit",
		"TransactionContext Error",
		"Conflict on update",
		"ducklake_metadata is locked",
		"database is locked"):
		return domain.ErrAction(domain.ErrKindCatalogWrite, err)
	default:
		return domain.ErrAction(domain.ErrKindSQLExecution, err)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
