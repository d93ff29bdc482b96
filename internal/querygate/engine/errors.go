package engine

import "errors"

// ErrEmptyQuery is returned for blank query text.
var ErrEmptyQuery = errors.New("query cannot be empty")

// ExecutionError wraps a failure reported while running a statement:
// connectivity, syntax or permissions. The driver message is passed through
// unchanged.
type ExecutionError struct {
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
