package store

import (
	"errors"
	"fmt"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// AlreadyExistsError reports a uniqueness violation on create.
type AlreadyExistsError struct {
	Resource string
	Name     string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("a %s named %s already exists", e.Resource, e.Name)
}

// NotFoundError reports a lookup miss where absence is an error, such as a
// named lookup or a default that was never set.
type NotFoundError struct {
	Resource string
	Name     string
}

func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("no default %s found", e.Resource)
	}
	return fmt.Sprintf("unable to find %s named %s", e.Resource, e.Name)
}

// InvalidVersionError reports an on-disk schema version this build does not
// recognize. There is no auto-repair: the operator must reset explicitly.
type InvalidVersionError struct {
	Version int64
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("unrecognized state version %d, run 'reset' to reset the local state", e.Version)
}

// isConstraintViolation reports whether err is a SQLite constraint failure,
// such as an insert on a taken primary key. Uniqueness is enforced by the
// database itself, so two racing inserts cannot both pass an application-side
// existence check.
func isConstraintViolation(err error) bool {
	var e *sqlite.Error
	return errors.As(err, &e) && e.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// IsAlreadyExists reports whether err is an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var e *AlreadyExistsError
	return errors.As(err, &e)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}
