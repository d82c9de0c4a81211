package storage

import (
	"errors"

	"github.com/md-rashed-zaman/shortlet/libs/db"
)

var (
	ErrDuplicateProviderEvent = errors.New("duplicate provider event")
	// ErrStaleWrite means a guarded update matched no row because the status moved underneath it.
	ErrStaleWrite = errors.New("row changed concurrently")
)

// IsConflict reports a violation of the booking exclusion constraint.
func IsConflict(err error) bool {
	return db.IsExclusionViolation(err)
}

func IsDuplicate(err error) bool {
	return db.IsUniqueViolation(err)
}

func IsNotFound(err error) bool {
	return db.IsNoRows(err)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
