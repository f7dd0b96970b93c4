package entwine

import (
	"errors"
	"fmt"

	"github.com/entwine-orm/entwine/logger"
)

var (
	// ErrRecordNotFound record not found error
	ErrRecordNotFound = logger.ErrRecordNotFound
	// ErrSchemaNotRegistered a relation or query referenced a type name that
	// was never registered
	ErrSchemaNotRegistered = errors.New("schema not registered")
	// ErrRelationNotFound the owner type declares no relation by that name
	ErrRelationNotFound = errors.New("relation not found")
	// ErrScopeNotFound the type declares no scope by that name
	ErrScopeNotFound = errors.New("scope not found")
	// ErrInvalidTransaction invalid transaction when you are trying to `Commit` or `Rollback`
	ErrInvalidTransaction = errors.New("no valid transaction")
	// ErrMissingWhereClause missing where clause for a mass update or delete
	ErrMissingWhereClause = errors.New("WHERE conditions required")
	// ErrMissingEngine the DB was opened without a query execution engine
	ErrMissingEngine = errors.New("query execution engine required")
	// ErrSoftDeleteNotEnabled restore or trashed-only visibility requested on
	// a type without a soft delete column
	ErrSoftDeleteNotEnabled = errors.New("soft deletes not enabled")
	// ErrInvalidData unsupported data
	ErrInvalidData = errors.New("unsupported data")

	errAborted = errors.New("aborted by hook")
)

// Abort is returned from a creating/updating/saving/deleting/restoring hook
// to cancel the operation. The entity method reports false instead of
// surfacing an error.
func Abort() error {
	return errAborted
}

// newNamedError wrap a sentinel with the reference that failed so the
// message names exactly what is missing.
func newNamedError(base error, typeName, name string) error {
	return fmt.Errorf("%w: %s.%s", base, typeName, name)
}
