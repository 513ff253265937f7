package db

import "strings"

// IsUniqueViolation reports whether err carries a Postgres unique
// violation. With a constraintName it matches that constraint only;
// without one any duplicate-key error counts.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
