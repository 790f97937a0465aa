// Package repository holds the MySQL data access layer.  Repositories
// return the sentinel errors below for expected conditions so services can
// translate them into domain errors with errors.Is; anything else is a
// storage failure wrapped with context.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique index
// (MySQL error 1062), e.g. a second ticket for the same user and event.
var ErrDuplicate = errors.New("duplicate entry")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be applied because the row
// is no longer in the expected state (e.g. a ticket already checked in).
var ErrConflict = errors.New("conflict")

const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL unique-key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
