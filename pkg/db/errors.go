package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation from
// Postgres (pgx or lib/pq) or SQLite. When constraint is set only that
// constraint matches.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if pg := pkgerrors.Diagnose(err).Postgres; pg != nil {
		return pg.SQLState == pgUniqueViolation && (constraint == "" || pg.Constraint == constraint)
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraint == "" || strings.Contains(msg, constraint)
}
