// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packet

import (
	"fmt"
	"log/slog"
	"sort"
)

// Table maps the packet ids of one direction and phase to constructors.
// Registration happens at startup; lookups are safe for concurrent use once
// registration is done.
type Table struct {
	name    string
	logger  *slog.Logger
	entries map[int32]func() Packet
}

// NewTable returns an empty table. The name identifies the table in logs.
func NewTable(name string, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		name:    name,
		logger:  logger,
		entries: make(map[int32]func() Packet),
	}
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Register maps id to ctor. It panics on a duplicate id or when ctor builds
// a packet with a different id.
func (t *Table) Register(id int32, ctor func() Packet) *Table {
	if _, ok := t.entries[id]; ok {
		panic(fmt.Sprintf("packet: duplicate id 0x%02X in table %s", id, t.name))
	}
	if got := ctor().ID(); got != id {
		panic(fmt.Sprintf("packet: table %s registers id 0x%02X for a packet with id 0x%02X", t.name, id, got))
	}
	t.entries[id] = ctor
	return t
}

// Lookup returns a fresh zero packet for id. An unregistered id yields an
// *Unknown and a warning.
func (t *Table) Lookup(id int32) Packet {
	if ctor, ok := t.entries[id]; ok {
		return ctor()
	}
	t.logger.Warn("Unknown packet id",
		slog.String("table", t.name),
		slog.String("id", fmt.Sprintf("0x%02X", id)))
	return &Unknown{PacketID: id}
}

// IDs returns the registered ids in ascending order.
func (t *Table) IDs() []int32 {
	ids := make([]int32, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
