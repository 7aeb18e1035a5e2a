// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package linerpc

import (
	"bytes"
	"fmt"

	"github.com/segmentio/encoding/json"
)

// Params holds the parameters of a Request.
//
// Exactly one of the two forms is active: by position, a JSON array, or by
// name, a JSON object. Decoding picks the form from the shape of the JSON.
type Params struct {
	byName     bool
	positional []RawMessage
	named      map[string]RawMessage
}

// compile time check whether the Params implements a json.Marshaler and json.Unmarshaler interfaces.
var (
	_ json.Marshaler   = (*Params)(nil)
	_ json.Unmarshaler = (*Params)(nil)
)

// ByPosition returns positional params holding the encoded values in order.
func ByPosition(values ...RawMessage) *Params {
	if values == nil {
		values = []RawMessage{}
	}
	return &Params{positional: values}
}

// ByName returns named params holding the encoded values.
func ByName(values map[string]RawMessage) *Params {
	if values == nil {
		values = map[string]RawMessage{}
	}
	return &Params{byName: true, named: values}
}

// NewPositionalParams marshals each value and returns them as positional params.
func NewPositionalParams(values ...interface{}) (*Params, error) {
	raw := make([]RawMessage, 0, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, errorf(ErrSerialization, err, "marshaling param %d", i)
		}
		raw = append(raw, data)
	}
	return ByPosition(raw...), nil
}

// NewNamedParams marshals each value and returns them as named params.
func NewNamedParams(values map[string]interface{}) (*Params, error) {
	raw := make(map[string]RawMessage, len(values))
	for k, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, errorf(ErrSerialization, err, "marshaling param %q", k)
		}
		raw[k] = data
	}
	return ByName(raw), nil
}

// IsByName reports whether the params are a JSON object.
func (p *Params) IsByName() bool { return p != nil && p.byName }

// Positional returns the positional values, or nil for named params.
func (p *Params) Positional() []RawMessage {
	if p == nil || p.byName {
		return nil
	}
	return p.positional
}

// Named returns the named values, or nil for positional params.
func (p *Params) Named() map[string]RawMessage {
	if p == nil || !p.byName {
		return nil
	}
	return p.named
}

// Len returns the number of values held.
func (p *Params) Len() int {
	switch {
	case p == nil:
		return 0
	case p.byName:
		return len(p.named)
	default:
		return len(p.positional)
	}
}

// Decode unmarshals the params into v.
//
// A failure is reported as an Invalid params error, ready to be returned from
// a Handler.
func (p *Params) Decode(v interface{}) error {
	data, err := p.MarshalJSON()
	if err != nil {
		return Errorf(InvalidParams, "Invalid params: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return Errorf(InvalidParams, "Invalid params: %v", err)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p *Params) MarshalJSON() ([]byte, error) {
	switch {
	case p == nil:
		return null, nil
	case p.byName:
		return json.Marshal(p.named)
	default:
		return json.Marshal(p.positional)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Params) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty params")
	}

	switch data[0] {
	case '[':
		var positional []RawMessage
		if err := json.Unmarshal(data, &positional); err != nil {
			return fmt.Errorf("unmarshaling positional params: %w", err)
		}
		*p = *ByPosition(positional...)

	case '{':
		var named map[string]RawMessage
		if err := json.Unmarshal(data, &named); err != nil {
			return fmt.Errorf("unmarshaling named params: %w", err)
		}
		*p = *ByName(named)

	default:
		return fmt.Errorf("params must be an array or an object, got %.20s", data)
	}

	return nil
}
