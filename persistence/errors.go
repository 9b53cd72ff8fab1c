package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("record not found")
	// ErrTerminalInstance is returned when objects are appended to a
	// completed or aborted assistance.
	ErrTerminalInstance = errors.New("assistance is completed or aborted")
	// ErrVersionConflict is returned when an update lost the race against a
	// concurrent writer.
	ErrVersionConflict = errors.New("assistance was modified concurrently")
)

// StorageError wraps a failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage error in %s: %v", e.Op, e.Err)
}

func (e StorageError) Unwrap() error {
	return e.Err
}
