package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by the CLI core matches exactly one of these via errors.Is.
var (
	ErrBadRepository        = errors.New("bad blueprint repository")
	ErrBranchCreationFailed = errors.New("temp branch creation failed")
	ErrRemoteCallFailed     = errors.New("remote call failed")
	ErrTimedOut             = errors.New("timed out")
	ErrRevertFailed         = errors.New("local state revert failed")
	ErrUsage                = errors.New("usage error")
	ErrNotConfigured        = errors.New("not configured")
)

// Error couples an error kind with the operation that failed.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// NewError builds a domain error of the given kind.
func NewError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Op != "":
		return e.Op
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// UsageError reports an invalid combination of command arguments.
func UsageError(format string, args ...any) error {
	return NewError(ErrUsage, fmt.Sprintf(format, args...), nil)
}

// BadRepository reports an unusable blueprint repository.
func BadRepository(reason string, err error) error {
	return NewError(ErrBadRepository, reason, err)
}
