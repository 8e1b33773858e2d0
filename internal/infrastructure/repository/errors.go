package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common repository errors. ErrNotFound distinguishes "no run yet for this
// country" from a query that succeeded with zero rows elsewhere.
var (
	ErrNotFound     = errors.New("entity not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
	ErrForeignKey   = errors.New("foreign key violation")
)

// IsNotFound checks if the error indicates a record was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyViolation checks for a unique constraint violation.
func IsDuplicateKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key")
}

// IsForeignKeyViolation checks for a foreign key constraint violation.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return strings.Contains(err.Error(), "foreign key")
}

// WrapRepositoryError maps database errors to the sentinel errors above.
func WrapRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case IsNotFound(err):
		return ErrNotFound
	case IsDuplicateKeyViolation(err):
		return ErrDuplicateKey
	case IsForeignKeyViolation(err):
		return ErrForeignKey
	default:
		return err
	}
}
