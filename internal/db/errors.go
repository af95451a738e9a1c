package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the addressed row does not exist, or when
	// an insert references a patient that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert violates a unique constraint.
	ErrConflict = errors.New("conflict")
	// ErrInvalid is returned when the database rejects a value as too long,
	// out of range or malformed for its column.
	ErrInvalid = errors.New("invalid value")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	pgStringTooLong         = "22001"
	pgNumericOutOfRange     = "22003"
	pgInvalidDatetime       = "22007"
	pgDatetimeFieldOverflow = "22008"
)

// classify maps driver errors onto the package sentinels. The driver error
// stays in the chain so callers can still log the detail.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrNotFound, pgErr.ConstraintName)
		case pgStringTooLong, pgNumericOutOfRange, pgInvalidDatetime, pgDatetimeFieldOverflow:
			return fmt.Errorf("%s: %w: %s", op, ErrInvalid, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
