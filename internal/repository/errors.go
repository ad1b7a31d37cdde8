// Package repository implements data access over MySQL.  Each entity gets a
// *sql.DB-backed repo struct; sentinel errors let handlers map failures to
// HTTP statuses without inspecting driver errors.
package repository

import (
	"errors"
	"strings"
)

// ErrConflict is returned when an operation cannot proceed because of
// dependent state, such as deleting a race that already has results.
// Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// isDuplicateKey reports whether a MySQL error is a unique-constraint
// violation (error 1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
