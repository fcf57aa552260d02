package repository

import (
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes for integrity constraint violations.
const (
	sqlstateForeignKeyViolation = "23503"
	sqlstateUniqueViolation     = "23505"
)

// Typed storage sentinels. Deletes of referenced catalog rows are attempted
// and classified, never pre-checked, so the outcome stays correct under
// concurrent inserts of referencing rows.
var (
	ErrForeignKeyViolation = errors.New("foreign key violation")
	ErrUniqueViolation     = errors.New("unique violation")
)

// classifyConstraint maps a PostgreSQL integrity error to one of the typed
// sentinels above. It returns the original error unchanged when it is not a
// constraint violation.
func classifyConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateForeignKeyViolation:
			return ErrForeignKeyViolation
		case sqlstateUniqueViolation:
			return ErrUniqueViolation
		}
	}
	return err
}
