// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
// Handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique
// key (e.g. an email already registered, a bootcamp name already taken,
// or a second review of the same bootcamp by one user).
var ErrDuplicate = errors.New("duplicate")

// ErrConflict is returned when a write refers to a row that does not
// exist anymore, such as a course created for a deleted bootcamp.
var ErrConflict = errors.New("conflict")

// MySQL server error numbers.
const (
	errDupEntry     = 1062
	errNoReferenced = 1452
)

// translate maps driver errors onto the sentinels above.  Unknown errors
// pass through unchanged.
func translate(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDupEntry:
			return ErrDuplicate
		case errNoReferenced:
			return ErrConflict
		}
	}
	return err
}
