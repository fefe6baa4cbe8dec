// Package tjerr defines the structured error taxonomy shared by every
// package in this engine: parsing, IR shape, register-file, value-type,
// unsupported-operation, and resource failures.
package tjerr

import "fmt"

// Kind classifies the failure a caller is dealing with, so the CLI can
// render a stable "Failed: <kind>: <message>" line regardless of which
// package raised it.
type Kind string

const (
	Parse       Kind = "Parse"
	Shape       Kind = "Shape"
	Reg         Kind = "Reg"
	Type        Kind = "Type"
	Unsupported Kind = "Unsupported"
	Resource    Kind = "Resource"
)

// Error is the concrete structured error type. It wraps an optional
// cause so errors.Is/errors.As keep working through %w-style chains.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a bare Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around an existing cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err if it (or something it wraps) is a
// *Error, and reports whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	for err != nil {
		if as, ok := err.(*Error); ok {
			e = as
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return "", false
	}
	return e.Kind, true
}
