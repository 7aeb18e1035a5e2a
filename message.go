// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package linerpc

import (
	"bytes"

	"github.com/segmentio/encoding/json"
)

// Message is the interface to all JSON-RPC message types.
//
// They share no common functionality other than the version tag, but are a
// closed set of concrete types that are allowed to implement this interface.
//
// The message types are *Request and *Response.
type Message interface {
	// Version is the "jsonrpc" member of the message.
	Version() string

	// isJSONRPC2Message is used to make the set of message implementations a
	// closed set.
	isJSONRPC2Message()
}

// Request is a request to invoke a method.
//
// A Request without an id is a notification, and no response is possible.
type Request struct {
	version string
	// method is a string containing the method name to invoke.
	method string
	// params is nil when the request carries no parameters.
	params *Params
	// id of this request, used to tie the Response back to the request.
	id *ID
}

// compile time check whether the Request implements a json.Marshaler interface.
var _ json.Marshaler = (*Request)(nil)

// NewRequest constructs a new Request message for the supplied method,
// parameters and id. Both params and id may be nil.
func NewRequest(method string, params *Params, id *ID) *Request {
	return &Request{
		version: Version,
		method:  method,
		params:  params,
		id:      id,
	}
}

// NewNotification constructs a new Request message without an id.
func NewNotification(method string, params *Params) *Request {
	return NewRequest(method, params, nil)
}

func (r *Request) Version() string    { return r.version }
func (r *Request) Method() string     { return r.method }
func (r *Request) Params() *Params    { return r.params }
func (r *Request) ID() *ID            { return r.id }
func (r *Request) IsNotify() bool     { return r.id == nil }
func (r *Request) isJSONRPC2Message() {}

// MarshalJSON implements json.Marshaler.
func (r *Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(&wireRequest{
		VersionTag: r.version,
		Method:     r.method,
		Params:     r.params,
		ID:         r.id,
	})
}

// Response is a reply to a Request.
//
// It will have the same ID as the request it is a response to, and exactly
// one of a result or an error.
type Response struct {
	version string
	// result is the content of a successful response.
	result RawMessage
	// err is set only if the call failed.
	err *Error
	// id of the request this is a response to.
	id ID
}

// compile time check whether the Response implements a json.Marshaler interface.
var _ json.Marshaler = (*Response)(nil)

// NewResponse constructs a successful Response. An empty result is sent as null.
func NewResponse(id ID, result RawMessage) *Response {
	if len(result) == 0 {
		result = null
	}
	return &Response{
		version: Version,
		result:  result,
		id:      id,
	}
}

// NewErrorResponse constructs a failed Response. A nil err is sent as ErrInternal.
func NewErrorResponse(id ID, err *Error) *Response {
	if err == nil {
		err = ErrInternal
	}
	return &Response{
		version: Version,
		err:     err,
		id:      id,
	}
}

func (r *Response) Version() string    { return r.version }
func (r *Response) Err() *Error        { return r.err }
func (r *Response) ID() ID             { return r.id }
func (r *Response) isJSONRPC2Message() {}

// Result returns the result of a successful response, or nil for a failed one.
func (r *Response) Result() RawMessage {
	if r.err != nil {
		return nil
	}
	return r.result
}

// MarshalJSON implements json.Marshaler.
func (r *Response) MarshalJSON() ([]byte, error) {
	resp := &wireResponse{
		VersionTag: r.version,
		Error:      r.err,
		ID:         r.id,
	}
	if resp.Error == nil {
		resp.Result = r.result
		if len(resp.Result) == 0 {
			resp.Result = null
		}
	}
	return json.Marshal(resp)
}

// EncodeMessage encodes msg to its compact JSON wire form, without a frame
// terminator. The result never contains a newline.
func EncodeMessage(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errorf(ErrSerialization, err, "marshaling message")
	}

	// raw results and params are embedded as given, compact them so a
	// pretty-printed value cannot split the frame
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, errorf(ErrSerialization, err, "compacting message")
	}
	return buf.Bytes(), nil
}

// DecodeMessage decodes data to Message.
//
// An object with a "method" member is a Request, one with a "result" or an
// "error" member is a Response. Anything else, including a Response with both
// or neither, fails with ErrSerialization. The version tag is decoded but not
// checked.
func DecodeMessage(data []byte) (Message, error) {
	var members map[string]RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, errorf(ErrSerialization, err, "unmarshaling message")
	}

	raw, ok := members["jsonrpc"]
	if !ok {
		return nil, errorf(ErrSerialization, nil, `message has no "jsonrpc" member`)
	}
	var version string
	if err := json.Unmarshal(raw, &version); err != nil {
		return nil, errorf(ErrSerialization, err, "unmarshaling version")
	}

	if _, ok := members["method"]; ok {
		return decodeRequest(version, members)
	}
	return decodeResponse(version, members)
}

func decodeRequest(version string, members map[string]RawMessage) (*Request, error) {
	req := &Request{version: version}
	if err := json.Unmarshal(members["method"], &req.method); err != nil {
		return nil, errorf(ErrSerialization, err, "unmarshaling method")
	}
	if req.method == "" {
		return nil, errorf(ErrSerialization, nil, "request has an empty method")
	}

	if raw, ok := members["params"]; ok && !isNull(raw) {
		req.params = new(Params)
		if err := req.params.UnmarshalJSON(raw); err != nil {
			return nil, errorf(ErrSerialization, err, "unmarshaling params")
		}
	}

	// a null id is treated the same as a missing one
	if raw, ok := members["id"]; ok && !isNull(raw) {
		req.id = new(ID)
		if err := req.id.UnmarshalJSON(raw); err != nil {
			return nil, errorf(ErrSerialization, err, "unmarshaling id")
		}
	}

	return req, nil
}

func decodeResponse(version string, members map[string]RawMessage) (*Response, error) {
	result, hasResult := members["result"]
	rawErr, hasError := members["error"]
	if hasError && isNull(rawErr) {
		hasError = false
	}

	switch {
	case hasResult && hasError:
		return nil, errorf(ErrSerialization, nil, "response has both a result and an error")
	case !hasResult && !hasError:
		return nil, errorf(ErrSerialization, nil, "message is neither a request nor a response")
	}

	rawID, ok := members["id"]
	if !ok {
		return nil, errorf(ErrSerialization, nil, "response has no id")
	}
	resp := &Response{version: version}
	if err := resp.id.UnmarshalJSON(rawID); err != nil {
		return nil, errorf(ErrSerialization, err, "unmarshaling id")
	}

	if hasError {
		resp.err = new(Error)
		if err := json.Unmarshal(rawErr, resp.err); err != nil {
			return nil, errorf(ErrSerialization, err, "unmarshaling error")
		}
		return resp, nil
	}

	resp.result = append(RawMessage(nil), bytes.TrimSpace(result)...)
	return resp, nil
}
