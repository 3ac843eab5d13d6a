package errors

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError classifies summary history failures. Errors it does not
// recognize are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := FromContext(err); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Wrap(err, ErrCodeNotFound, "Summary not found")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == pgerrcode.QueryCanceled:
		return Wrap(pgErr, ErrCodeTimeout, "Request timed out. Please try again.")
	case pgErr.Code == pgerrcode.UndefinedTable:
		// Migrations have not run against this database.
		return Wrap(pgErr, ErrCodeInternal, "Summary history schema is missing")
	case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "Invalid summary record",
			Field:   constraintField(pgErr),
			Cause:   pgErr,
		}
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgerrcode.IsInsufficientResources(pgErr.Code),
		pgerrcode.IsOperatorIntervention(pgErr.Code):
		return Wrap(pgErr, ErrCodeUpstream, "Summary history is unavailable")
	default:
		return Wrap(pgErr, ErrCodeInternal, "A database error occurred. Please try again.")
	}
}

// constraintField names the offending column, falling back to the constraint
// so a check violation still points somewhere.
func constraintField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	return pgErr.ConstraintName
}
