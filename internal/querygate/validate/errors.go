package validate

import "fmt"

// Kind tells which validator produced an Error.
type Kind string

const (
	KindQuery      Kind = "query"
	KindIdentifier Kind = "identifier"
)

// Error is a validation rejection. It is always recoverable and is never
// retried automatically; Reason is safe to show to the caller.
type Error struct {
	Kind   Kind
	Input  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Kind, e.Reason)
}
