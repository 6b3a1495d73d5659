// Package store provides database access methods for all bookshelf
// entities. Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned by store operations. Handlers match these with
// errors.Is and translate them into inline form errors, 404s, or 403s.
var (
	ErrDuplicateUsername = errors.New("store: username already taken")
	ErrDuplicateEmail    = errors.New("store: email already registered")
	ErrAlreadyOnShelf    = errors.New("store: book already on shelf")
	ErrInvalidRating     = errors.New("store: rating must be between 1 and 5")
	ErrNotFound          = errors.New("store: not found")
	ErrWrongPassword     = errors.New("store: wrong password")
	ErrSelfAction        = errors.New("store: admins cannot modify their own account")
)

// uniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505) on the named constraint. An empty constraint
// matches any unique violation.
func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
