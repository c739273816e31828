package api

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-shop-backend/internal/types"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// ErrReferenceMissing marks a foreign key violation. It is also a types.ErrNotFound.
var ErrReferenceMissing = fmt.Errorf("referenced row does not exist: %w", types.ErrNotFound)

// TranslateDBError maps driver errors to the domain taxonomy and wraps anything else with op.
// conflictMsg is the client-facing text for unique violations.
func TranslateDBError(err error, op, conflictMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", op, types.NewConflictError(conflictMsg))
		case pgForeignKeyViolation:
			return fmt.Errorf("%s (%s): %w", op, pgErr.ConstraintName, ErrReferenceMissing)
		case pgCheckViolation:
			field := pgErr.ColumnName
			if field == "" {
				field = pgErr.ConstraintName
			}
			return fmt.Errorf("%s: %w", op, types.NewValidationError(field, "violates constraint "+pgErr.ConstraintName))
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
