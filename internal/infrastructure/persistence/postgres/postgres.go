// Package postgres implements the persistence ports on PostgreSQL via pgx.
// Uniqueness (invite codes, single-organization membership, duplicate
// project membership) is enforced by database constraints and surfaced as
// the domain's ErrConflict.
package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
