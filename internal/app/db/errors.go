package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("db: record not found")

	// ErrConflict is returned when an insert lost a race against another insert of the same key.
	ErrConflict = errors.New("db: record already exists")
)

// IsUniqueViolation checks if the error is a PostgreSQL unique constraint violation (code 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// translate maps driver errors onto the package sentinels. noRows is what pgx.ErrNoRows
// means for the calling query.
func translate(err error, noRows error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return noRows
	case IsUniqueViolation(err):
		return ErrConflict
	default:
		return err
	}
}
