// Package errors implements coded errors that carry a failure category,
// so that callers can decide how to treat a failure without matching on
// individual error values.
package errors

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// UnknownModule is the module name used when the module is unknown.
	UnknownModule = "unknown"

	// CodeNoError is the reserved "no error" code.
	CodeNoError = 0
)

// Category is the broad class a coded error belongs to.
type Category uint8

const (
	// CategoryNone is the category of a nil error.
	CategoryNone Category = iota
	// CategoryUnknown is the category of errors that were not created by
	// this package.
	CategoryUnknown
	// CategoryFormat is the category of malformed or truncated encodings.
	CategoryFormat
	// CategoryValue is the category of encodings that are well formed at
	// the stream level but carry a semantically invalid value.
	CategoryValue
	// CategoryInternal is the category of broken internal invariants.
	CategoryInternal
)

// String returns the string representation of a Category.
func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryUnknown:
		return "unknown"
	case CategoryFormat:
		return "format"
	case CategoryValue:
		return "value"
	case CategoryInternal:
		return "internal"
	default:
		return fmt.Sprintf("[unsupported category: %d]", uint8(c))
	}
}

var errUnknownError = New(UnknownModule, 1, CategoryUnknown, "unknown error")

// Re-exports so this package can be used as a replacement for errors.
var (
	As     = errors.As
	Is     = errors.Is
	Unwrap = errors.Unwrap
)

var registeredErrors sync.Map

type codedError struct {
	module   string
	code     uint32
	category Category
	msg      string
}

func (e *codedError) Error() string {
	return e.msg
}

type codedErrorWithContext struct {
	err     error
	context string
}

func (e *codedErrorWithContext) Error() string {
	return fmt.Sprintf("%v: %s", e.err, e.context)
}

func (e *codedErrorWithContext) Unwrap() error {
	return e.err
}

// WithContext creates a wrapped error that provides additional context.
func WithContext(err error, context string) error {
	if len(context) == 0 {
		return err
	}

	return &codedErrorWithContext{
		err:     err,
		context: context,
	}
}

// Context returns the additional context associated with the error.
func Context(err error) string {
	if err == nil {
		return ""
	}

	var cec *codedErrorWithContext
	if As(err, &cec) {
		return cec.context
	}
	return ""
}

// New creates a new error.
//
// Module and code pair must be unique. If they are not, this method
// will panic.
//
// The error code must not be equal to the reserved "no error" code.
func New(module string, code uint32, category Category, msg string) error {
	if code == CodeNoError {
		panic(fmt.Errorf("error: code reserved 'no error' code: %d", CodeNoError))
	}

	e := &codedError{
		module:   module,
		code:     code,
		category: category,
		msg:      msg,
	}

	key := errorKey(module, code)
	if prev, isRegistered := registeredErrors.Load(key); isRegistered {
		panic(fmt.Errorf("error: already registered: %s (existing: %s)", key, prev))
	}
	registeredErrors.Store(key, e)

	return e
}

// Code returns the module and code for the given error.
//
// In case the error is not of the correct type, default values
// for an unknown error are returned.
//
// In case the error is nil, an empty module name and CodeNoError
// are returned.
func Code(err error) (string, uint32) {
	if err == nil {
		return "", CodeNoError
	}

	var ce *codedError
	if !As(err, &ce) {
		ce = errUnknownError.(*codedError)
	}

	return ce.module, ce.code
}

// CategoryOf returns the category of the first coded error found in the
// wrap chain of err.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryNone
	}

	var ce *codedError
	if !As(err, &ce) {
		return CategoryUnknown
	}
	return ce.category
}

func errorKey(module string, code uint32) string {
	return fmt.Sprintf("%s-%d", module, code)
}
