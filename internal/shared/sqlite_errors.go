// Package shared provides common utilities used across the codebase.
package shared

import "strings"

// IsSQLiteConflictError reports whether the error is a SQLITE_BUSY or
// "database is locked" error. Both are concurrency errors that warrant
// a retry.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
