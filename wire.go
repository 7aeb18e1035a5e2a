// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package linerpc

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/segmentio/encoding/json"
)

// Version represents a JSON-RPC version.
const Version = "2.0"

// RawMessage is a raw encoded JSON value.
type RawMessage = json.RawMessage

var null = RawMessage("null")

// isNull reports whether data is the JSON null literal.
func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), null)
}

// ID is a Request identifier.
//
// The id is opaque: it holds the compact encoding of whatever JSON value the
// peer sent, and two ids are equal when their encodings are. The zero ID
// encodes as null.
type ID struct {
	raw RawMessage
}

// compile time check whether the ID implements a fmt.Formatter, json.Marshaler and json.Unmarshaler interfaces.
var (
	_ fmt.Formatter    = (*ID)(nil)
	_ json.Marshaler   = (*ID)(nil)
	_ json.Unmarshaler = (*ID)(nil)
)

// NewNumberID returns a new number request ID.
func NewNumberID(v int64) ID {
	return ID{raw: strconv.AppendInt(nil, v, 10)}
}

// NewStringID returns a new string request ID.
func NewStringID(v string) ID {
	data, _ := json.Marshal(v) // a string always marshals
	return ID{raw: data}
}

func (id ID) bytes() []byte {
	if len(id.raw) == 0 {
		return null
	}
	return id.raw
}

// Equal reports whether id and other are the same JSON value.
func (id ID) Equal(other ID) bool {
	return bytes.Equal(id.bytes(), other.bytes())
}

// Raw returns the JSON encoding of the id.
func (id ID) Raw() RawMessage {
	return append(RawMessage(nil), id.bytes()...)
}

// String returns the plain form of the ID.
func (id ID) String() string { return fmt.Sprint(id) }

// Format writes the ID to the formatter.
//
// If the rune is q the representation is non ambiguous,
// string forms are quoted, number forms are preceded by a #.
func (id ID) Format(f fmt.State, r rune) {
	numF, strF := `%s`, `%s`
	if r == 'q' {
		numF, strF = `#%s`, `%q`
	}

	raw := id.bytes()
	switch c := raw[0]; {
	case c == '"':
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			fmt.Fprintf(f, strF, name)
			return
		}
	case c == '-' || ('0' <= c && c <= '9'):
		fmt.Fprintf(f, numF, raw)
		return
	}
	fmt.Fprintf(f, "%s", raw)
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	return id.bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return fmt.Errorf("invalid id %q: %w", data, err)
	}
	id.raw = buf.Bytes()
	return nil
}

// wireRequest is sent to a server to represent a Call or Notify operaton.
type wireRequest struct {
	// VersionTag is the protocol version, "2.0" unless decoded from a peer
	// that sent something else.
	VersionTag string `json:"jsonrpc"`
	// Method is a string containing the method name to invoke.
	Method string `json:"method"`
	// Params is either an array or an object with the parameters of the method.
	Params *Params `json:"params,omitempty"`
	// The id of this request, used to tie the Response back to the request.
	// If not set, the Request is a notify, and no response is possible.
	ID *ID `json:"id,omitempty"`
}

// wireResponse is a reply to a Request.
//
// It will always have the ID field set to tie it back to a request, and will
// have either the Result or Error fields set depending on whether it is a
// success or failure wireResponse.
type wireResponse struct {
	// VersionTag is the protocol version.
	VersionTag string `json:"jsonrpc"`
	// Result is the response value, and is required on success.
	Result RawMessage `json:"result,omitempty"`
	// Error is a structured error response if the call fails.
	Error *Error `json:"error,omitempty"`
	// ID must be set and is the identifier of the Request this is a response to.
	ID ID `json:"id"`
}
