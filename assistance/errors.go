package assistance

import (
	"fmt"
)

// MissingParameterError signals an expected context value is absent. Inside
// applicability checks it is ordinary control flow; out of business
// execution it is a real failure.
type MissingParameterError struct {
	Key string
}

func (e MissingParameterError) Error() string {
	return fmt.Sprintf("required parameter '%s' missing", e.Key)
}

// UnknownOperationError signals a referenced operation key was never
// registered. This is a configuration error and is never swallowed.
type UnknownOperationError struct {
	TypeKey      string
	OperationKey string
}

func (e UnknownOperationError) Error() string {
	return fmt.Sprintf("operation '%s' not registered for process type '%s'", e.OperationKey, e.TypeKey)
}

// UnknownProcessTypeError signals a request named a process type that was
// never registered.
type UnknownProcessTypeError struct {
	TypeKey string
}

func (e UnknownProcessTypeError) Error() string {
	return fmt.Sprintf("process type '%s' not registered", e.TypeKey)
}

// DuplicateOperationError is raised at startup when a process definition
// binds the same operation key twice.
type DuplicateOperationError struct {
	OperationKey string
}

func (e DuplicateOperationError) Error() string {
	return fmt.Sprintf("operation '%s' already registered", e.OperationKey)
}

// DuplicateProcessTypeError is raised at startup when two processes share a
// type key.
type DuplicateProcessTypeError struct {
	TypeKey string
}

func (e DuplicateProcessTypeError) Error() string {
	return fmt.Sprintf("process type '%s' already registered", e.TypeKey)
}

// NotSchedulableError signals that a context holding a non-serializable
// value was handed to the scheduler.
type NotSchedulableError struct {
	OperationKey string
}

func (e NotSchedulableError) Error() string {
	return fmt.Sprintf("context for operation '%s' holds non-serializable values and can not be scheduled", e.OperationKey)
}

// ChainDepthExceededError signals a declared-but-cyclic request graph.
type ChainDepthExceededError struct {
	Depth int
}

func (e ChainDepthExceededError) Error() string {
	return fmt.Sprintf("chained request depth %d exceeded, request graph is likely cyclic", e.Depth)
}
