package state

import (
	"errors"
	"fmt"
)

// ErrEmptyPath reports a root or derived path that is empty.
var ErrEmptyPath = errors.New("the path is empty")

// InvalidPathError reports a malformed root or derived path.
type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("the path %s is invalid", e.Path)
}

// InvalidDataError reports inconsistent on-disk state, such as a record file
// that cannot be decoded.
type InvalidDataError struct {
	Reason string
}

func (e *InvalidDataError) Error() string { return e.Reason }

// InvalidOperationError reports a state or argument inconsistency, such as
// an enrollment check on a half-enrolled state.
type InvalidOperationError struct {
	Reason string
}

func (e *InvalidOperationError) Error() string { return e.Reason }
