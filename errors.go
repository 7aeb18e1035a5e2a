// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package linerpc

import (
	"errors"
	"fmt"

	"golang.org/x/xerrors"
)

// Error represents a JSON-RPC error object.
//
// A *Error returned from Client.Call is an RPC failure: the remote end
// answered the call, and the answer was an error.
type Error struct {
	// Code a number indicating the error type that occurred.
	Code Code `json:"code"`

	// Message a string providing a short description of the error.
	Message string `json:"message"`

	// Data a Primitive or Structured value that contains additional
	// information about the error. Can be omitted.
	Data RawMessage `json:"data,omitempty"`

	frame xerrors.Frame
}

// compile time check whether the Error implements error interface.
var _ error = (*Error)(nil)

// NewError builds a Error struct for the suppied code and message.
func NewError(c Code, message string) *Error {
	return &Error{
		Code:    c,
		Message: message,
		frame:   xerrors.Caller(1),
	}
}

// Errorf builds a Error struct for the suppied code, format and args.
func Errorf(c Code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    c,
		Message: fmt.Sprintf(format, args...),
		frame:   xerrors.Caller(1),
	}
}

// Error implements error.Error.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Is reports whether target is a *Error with the same code.
//
// This allows errors.Is(err, ErrMethodNotFound) on errors decoded from the wire.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// Format implements fmt.Formatter.
func (e *Error) Format(s fmt.State, c rune) {
	xerrors.FormatError(e, s, c)
}

// FormatError implements xerrors.Formatter.
//
// The plain form is the message alone, so wrapping a *Error keeps its text
// intact; the detailed form adds the code and the call site.
func (e *Error) FormatError(p xerrors.Printer) (next error) {
	p.Print(e.Message)
	if p.Detail() {
		if e.Message != "" {
			p.Print(" ")
		}
		p.Printf("(code=%v)", e.Code)
		e.frame.Format(p)
	}

	return nil
}

// toError converts any handler failure into a wire error.
func toError(err error) *Error {
	if err == nil {
		return nil
	}
	var wrapped *Error
	if !errors.As(err, &wrapped) {
		return NewError(InternalError, err.Error())
	}
	if wrapped == nil {
		// a typed nil *Error is still a failure
		if msg := err.Error(); msg != "" {
			return NewError(InternalError, msg)
		}
		return ErrInternal
	}
	if wrapped == err {
		// already a wire error, just use it
		return wrapped
	}
	// we wrapped a wire error, keep the code from the wrapped error
	// but the message from the outer error
	return &Error{
		Code:    wrapped.Code,
		Message: err.Error(),
		Data:    wrapped.Data,
	}
}

// constErr represents a error constant.
type constErr string

// compile time check whether the constErr implements error interface.
var _ error = (*constErr)(nil)

// Error implements error.Error.
func (e constErr) Error() string { return string(e) }

// Error kinds. Every error returned by this package, other than a *Error,
// matches exactly one of them with errors.Is.
const (
	// ErrProtocol reports a peer that broke the JSON-RPC envelope rules:
	// wrong version, unexpected message type, mismatched id or an oversized frame.
	ErrProtocol = constErr("protocol error")

	// ErrSerialization reports a frame that is not JSON or does not have the
	// shape of a Request or a Response.
	ErrSerialization = constErr("serialization error")

	// ErrConnection reports a failure of the underlying byte stream, including
	// a peer closing the connection and an expired deadline.
	ErrConnection = constErr("connection error")
)

// kindError is an error of one of the kinds above, with an optional cause.
type kindError struct {
	kind  constErr
	msg   string
	err   error
	frame xerrors.Frame
}

// errorf returns a kindError of the kind, wrapping cause which may be nil.
func errorf(kind constErr, cause error, format string, args ...interface{}) error {
	return &kindError{
		kind:  kind,
		msg:   fmt.Sprintf(format, args...),
		err:   cause,
		frame: xerrors.Caller(1),
	}
}

// Error implements error.Error.
func (e *kindError) Error() string {
	s := string(e.kind) + ": " + e.msg
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

// Is implements errors.Is against the error kind.
func (e *kindError) Is(target error) bool { return target == e.kind }

// Unwrap returns the cause, which may be nil.
func (e *kindError) Unwrap() error { return e.err }

// Format implements fmt.Formatter.
func (e *kindError) Format(s fmt.State, c rune) {
	xerrors.FormatError(e, s, c)
}

// FormatError implements xerrors.Formatter.
func (e *kindError) FormatError(p xerrors.Printer) (next error) {
	p.Printf("%s: %s", e.kind, e.msg)
	e.frame.Format(p)

	return e.err
}
