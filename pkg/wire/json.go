// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"
	"fmt"
)

// JSON is a JSON document carried as a length-prefixed string. The raw text
// is kept as received; nil encodes as "null".
type JSON json.RawMessage

// NewJSON marshals v into a JSON field.
func NewJSON(v any) (JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json field: %w", err)
	}
	return JSON(b), nil
}

// Unmarshal decodes the document into v.
func (j JSON) Unmarshal(v any) error {
	return json.Unmarshal(j, v)
}

func (j JSON) Encode(w *Writer) {
	if j == nil {
		w.WriteString("null")
		return
	}
	w.WriteVarInt(int32(len(j)))
	w.WriteBytes(j)
}

func (j *JSON) Decode(r *Reader) error {
	s, err := r.ReadString()
	if err != nil {
		return err
	}
	*j = JSON(s)
	return nil
}
