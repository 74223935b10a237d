// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packet_test

import (
	"bytes"
	"log/slog"
	"testing"

	perrors "github.com/absmach/mcsniff/pkg/errors"
	"github.com/absmach/mcsniff/pkg/packet"
	"github.com/absmach/mcsniff/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct {
	Time wire.Long
}

func (p *ping) ID() int32            { return 0x01 }
func (p *ping) Fields() []wire.Field { return []wire.Field{&p.Time} }

func newTable(t *testing.T) (*packet.Table, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	tbl := packet.NewTable("serverbound/status", logger).
		Register(0x01, func() packet.Packet { return &ping{} })
	return tbl, &logs
}

func TestMarshal(t *testing.T) {
	got := packet.Marshal(&ping{Time: 1})
	assert.Equal(t, []byte{0x01, 0, 0, 0, 0, 0, 0, 0, 1}, got)
}

func TestDecodeRegistered(t *testing.T) {
	tbl, logs := newTable(t)

	p, err := packet.Decode(tbl, packet.Marshal(&ping{Time: 42}))
	require.NoError(t, err)
	pp, ok := p.(*ping)
	require.True(t, ok, "got %T", p)
	assert.Equal(t, wire.Long(42), pp.Time)
	assert.Empty(t, logs.String())
}

func TestLookupReturnsFreshPackets(t *testing.T) {
	tbl, _ := newTable(t)
	a := tbl.Lookup(0x01).(*ping)
	a.Time = 7
	b := tbl.Lookup(0x01).(*ping)
	assert.Equal(t, wire.Long(0), b.Time)
}

func TestDecodeUnknown(t *testing.T) {
	tbl, logs := newTable(t)

	p, err := packet.Decode(tbl, []byte{0x7F, 0xde, 0xad})
	require.NoError(t, err)
	u, ok := p.(*packet.Unknown)
	require.True(t, ok, "got %T", p)
	assert.Equal(t, int32(0x7F), u.ID())
	assert.Contains(t, logs.String(), "serverbound/status")
	assert.Contains(t, logs.String(), "0x7F")
}

func TestDecodeTruncatedBody(t *testing.T) {
	tbl, _ := newTable(t)

	p, err := packet.Decode(tbl, []byte{0x01, 0, 0})
	assert.ErrorIs(t, err, perrors.ErrTruncatedInput)
	assert.IsType(t, &ping{}, p)
}

func TestDecodeMalformedID(t *testing.T) {
	tbl, _ := newTable(t)
	_, err := packet.Decode(tbl, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x01})
	assert.ErrorIs(t, err, perrors.ErrMalformedVarint)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	tbl, _ := newTable(t)
	assert.Panics(t, func() {
		tbl.Register(0x01, func() packet.Packet { return &ping{} })
	})
}

func TestRegisterMismatchedIDPanics(t *testing.T) {
	tbl := packet.NewTable("test", nil)
	assert.Panics(t, func() {
		tbl.Register(0x02, func() packet.Packet { return &ping{} })
	})
}

func TestIDs(t *testing.T) {
	tbl, _ := newTable(t)
	assert.Equal(t, []int32{0x01}, tbl.IDs())
}
