package sqlite

import (
	"strings"

	"github.com/msomdec/contacts-api/internal/domain"
)

// isUniqueConstraintError checks if the error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// accountConflict maps a unique violation on the accounts table to the
// matching domain error.
func accountConflict(err error) error {
	if strings.Contains(err.Error(), "accounts.username") {
		return domain.ErrDuplicateUsername
	}
	return domain.ErrDuplicateEmail
}
