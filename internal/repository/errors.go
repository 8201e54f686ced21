package repository

import (
	"fmt"

	apperrors "github.com/spec-kit/account-api/pkg/util/errorutil"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = apperrors.ErrNotFound

// DuplicateError reports a unique constraint violation on Field.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}
