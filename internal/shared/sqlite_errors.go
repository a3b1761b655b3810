// Package shared holds small helpers needed by more than one package.
package shared

import "strings"

// The modernc driver surfaces SQLite failures as plain error strings, so
// classification is substring matching. Both the async message writer and
// the janitor share one database file; under load their writes contend
// and these errors are the signal to back off and retry.

// IsSQLiteBusyError reports whether err is a SQLITE_BUSY failure, raised
// when another connection holds the write lock.
func IsSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY")
}

// IsSQLiteLockedError reports whether err is a "database is locked"
// failure, the other form SQLite lock contention takes.
func IsSQLiteLockedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}

// IsSQLiteConflictError reports whether err is either contention error.
// Callers treat a conflict as retryable; anything else is permanent.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	return IsSQLiteBusyError(err) || IsSQLiteLockedError(err)
}
