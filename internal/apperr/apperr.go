package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors so callers can react without string matching.
type Kind int

const (
	// Validation marks malformed input: bad filter combinations, limits
	// outside the allowed range, incomplete recurrence specs, oversized
	// batches.
	Validation Kind = iota
	// NotFound marks a referenced task, subtask, tag or pattern that is
	// absent or not owned by the caller.
	NotFound
	// Conflict marks subtask order collisions.
	Conflict
	// State marks operations invalid for the entity's current lifecycle
	// state, e.g. restoring a task that was never deleted.
	State
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case State:
		return "state"
	default:
		return "unknown"
	}
}

// Error is the single typed error the engine raises. It wraps an optional
// cause so fmt.Errorf("%w") chains keep working.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a typed error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
