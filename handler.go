// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package linerpc

import (
	"context"
	"fmt"

	"github.com/segmentio/encoding/json"
)

// Handler is invoked by the server to compute the result of one method.
//
// The returned result is marshaled to JSON, a nil result is sent as null and
// a RawMessage is sent as is. A returned *Error, or an error wrapping one, is
// sent with its code; any other error is sent as an Internal error carrying
// its text. The handler must not keep params after returning.
type Handler interface {
	Invoke(ctx context.Context, params *Params) (result interface{}, err error)
}

// HandlerFunc type adapts a function to implement the Handler interface.
type HandlerFunc func(ctx context.Context, params *Params) (interface{}, error)

// Invoke implements Handler.Invoke.
func (f HandlerFunc) Invoke(ctx context.Context, params *Params) (interface{}, error) {
	return f(ctx, params)
}

// MethodNotFoundHandler is a Handler that fails every call with the standard
// method not found error. The server uses it for unregistered methods.
var MethodNotFoundHandler = HandlerFunc(func(context.Context, *Params) (interface{}, error) {
	return nil, ErrMethodNotFound
})

// invoke runs h and converts its outcome into either an encoded result or a
// wire error. A panicking handler is reported as an Internal error.
func invoke(ctx context.Context, h Handler, params *Params) (result RawMessage, rerr *Error) {
	defer func() {
		if r := recover(); r != nil {
			result, rerr = nil, Errorf(InternalError, "panic: %v", r)
		}
	}()

	v, err := h.Invoke(ctx, params)
	if err != nil {
		return nil, toError(err)
	}

	data, err := marshalResult(v)
	if err != nil {
		return nil, Errorf(InternalError, "marshaling result: %v", err)
	}

	return data, nil
}

func marshalResult(v interface{}) (RawMessage, error) {
	switch v := v.(type) {
	case nil:
		return null, nil
	case RawMessage:
		if len(v) == 0 {
			return null, nil
		}
		if !json.Valid(v) {
			return nil, fmt.Errorf("invalid raw result %.20q", v)
		}
		return v, nil
	default:
		return json.Marshal(v)
	}
}
