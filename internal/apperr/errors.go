// Package apperr defines the error taxonomy shared by storage and its callers.
package apperr

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies a failure so callers can branch on it.
type Kind uint8

const (
	KindIO Kind = iota + 1
	KindNotFound
	KindInvalidInput
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io failure"
	case KindNotFound:
		return "not found"
	case KindInvalidInput:
		return "invalid input"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Sentinels matched by (*Error).Is, so errors.Is(err, ErrNotFound) works on
// any *Error of the corresponding kind.
var (
	ErrIO           = errors.New("io failure")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// Error carries the kind, the operation, the path it touched and the cause.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrIO:
		return e.Kind == KindIO
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrInvalidInput:
		return e.Kind == KindInvalidInput
	case ErrConflict:
		return e.Kind == KindConflict
	}
	return false
}

// New returns an *Error of the given kind.
func New(kind Kind, op, path string, err error) error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Invalid returns a KindInvalidInput error with a formatted cause.
func Invalid(op, path, format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// FromOS converts a filesystem error at the point of occurrence. A missing
// file or directory becomes KindNotFound, anything else KindIO. Errors that
// are already classified pass through unchanged.
func FromOS(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	kind := KindIO
	if errors.Is(err, fs.ErrNotExist) {
		kind = KindNotFound
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindIO for
// unclassified non-nil errors.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindIO
}
