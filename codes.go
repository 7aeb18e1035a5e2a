// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package linerpc

// Code is an int64 error code as defined in the JSON-RPC spec.
type Code int64

// list of JSON-RPC error codes.
const (
	// ParseError is the invalid JSON was received by the server.
	// An error occurred on the server while parsing the JSON text.
	ParseError Code = -32700

	// InvalidRequest is the JSON sent is not a valid Request object.
	InvalidRequest Code = -32600

	// MethodNotFound is the method does not exist / is not available.
	MethodNotFound Code = -32601

	// InvalidParams is the invalid method parameter(s).
	InvalidParams Code = -32602

	// InternalError is the internal JSON-RPC error.
	InternalError Code = -32603
)

// list of JSON-RPC errors.
//
// The messages are the ones the reference JSON-RPC implementations put on the
// wire, so a Method not found response is byte for byte
// {"code":-32601,"message":"Method not found"}.
var (
	// ErrParse is used when invalid JSON was received by the server.
	ErrParse = NewError(ParseError, "Parse error")

	// ErrInvalidRequest is used when the JSON sent is not a valid Request object.
	ErrInvalidRequest = NewError(InvalidRequest, "Invalid Request")

	// ErrMethodNotFound is sent by the server when the method is not registered.
	ErrMethodNotFound = NewError(MethodNotFound, "Method not found")

	// ErrInvalidParams should be returned by a handler when method
	// parameter(s) were invalid.
	ErrInvalidParams = NewError(InvalidParams, "Invalid params")

	// ErrInternal is sent when a handler fails without a structured error.
	ErrInternal = NewError(InternalError, "Internal error")
)
