package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/msomdec/contacts-api/internal/domain"
)

// uniqueViolation reports the constraint name when err is a unique violation.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func accountConflict(constraint string) error {
	if constraint == "accounts_username_key" {
		return domain.ErrDuplicateUsername
	}
	return domain.ErrDuplicateEmail
}
