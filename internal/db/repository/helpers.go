// Package repository implements domain repository interfaces using SQLite.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"permissions-manager/internal/domain"
)

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// mapDBError translates driver-level errors into domain errors. The caller
// supplies the machine codes to use for the not-found and conflict cases.
func mapDBError(err error, notFoundCode, conflictCode string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound(notFoundCode, "resource not found")
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.ErrConflict(conflictCode, "resource already exists")
	}
	return err
}

// likePattern builds a case-insensitive substring LIKE pattern, escaping the
// LIKE metacharacters in the user-supplied filter.
func likePattern(filter string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(filter))
	return "%" + escaped + "%"
}
