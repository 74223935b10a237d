// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the binary encoding rules of the protocol:
// VarInt and zig-zag VarLong integers, big-endian primitives, length-prefixed
// strings and sequences, optional values, bit-packed positions and the opaque
// NBT and JSON units.
//
// Every value type implements Field. Composite values list their fields in
// wire order through Struct, so a packet layout is declared once:
//
//	type Handshake struct {
//		ProtocolVersion wire.VarInt
//		ServerHost      wire.String
//		ServerPort      wire.UShort
//		NextState       wire.VarInt
//	}
//
//	func (h *Handshake) Fields() []wire.Field {
//		return []wire.Field{&h.ProtocolVersion, &h.ServerHost, &h.ServerPort, &h.NextState}
//	}
package wire
