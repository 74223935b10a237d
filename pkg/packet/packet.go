// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package packet defines the packet capability and the id dispatch tables
// that map the packet ids of one phase and direction to packet types.
package packet

import (
	"fmt"

	"github.com/absmach/mcsniff/pkg/wire"
)

// Packet is a message with a stable id whose body is its fields in order.
// Callers downcast with a type assertion on the concrete pointer type.
type Packet interface {
	wire.Struct
	ID() int32
}

// Marshal returns the payload of p: VarInt(id) ++ body.
func Marshal(p Packet) []byte {
	w := wire.NewWriter(64)
	w.WriteVarInt(p.ID())
	wire.EncodeFields(w, p)
	return w.Bytes()
}

// ReadID returns the packet id at the start of payload and the body after it.
func ReadID(payload []byte) (int32, []byte, error) {
	id, n, err := wire.DecodeVarInt(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("packet id: %w", err)
	}
	return id, payload[n:], nil
}

// Decode reads the id from payload, looks the packet up in t and decodes the
// body into it. When the body fails to decode, the looked up packet is
// returned alongside the error so callers can still branch on its type.
func Decode(t *Table, payload []byte) (Packet, error) {
	id, body, err := ReadID(payload)
	if err != nil {
		return nil, err
	}
	p := t.Lookup(id)
	if err := wire.DecodeFields(wire.NewReader(body), p); err != nil {
		return p, fmt.Errorf("decode %s packet 0x%02X: %w", t.Name(), id, err)
	}
	return p, nil
}

// Unknown stands for an id a table has no entry for. It has no fields.
type Unknown struct {
	PacketID int32
}

func (u *Unknown) ID() int32 { return u.PacketID }

func (u *Unknown) Fields() []wire.Field { return nil }
