package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for store operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDuplicate indicates a work item already exists for the
	// (source, record-id) identity.
	ErrDuplicate = errors.New("work item already exists")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrNotResettable indicates a reset was attempted on an item that is
	// not in a terminal failed/skipped status.
	ErrNotResettable = errors.New("item is not failed or skipped")
)

// wrapQueryError inspects a SurrealDB error and wraps it with the appropriate
// sentinel if it matches a known query error pattern. Returns the original
// error otherwise.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		if strings.Contains(queryErr.Message, "already exists") {
			return fmt.Errorf("%w: %s", ErrDuplicate, queryErr.Message)
		}
	}

	return err
}
