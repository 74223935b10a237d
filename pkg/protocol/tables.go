// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package protocol declares the handshake, status and login packets and the
// dispatch tables that select them by direction, phase and id.
package protocol

import (
	"fmt"
	"log/slog"

	"github.com/absmach/mcsniff/pkg/packet"
	"github.com/absmach/mcsniff/pkg/parser"
	"github.com/absmach/mcsniff/pkg/session"
)

// Tables holds one dispatch table per direction and phase. Upstream tables
// hold serverbound packets, Downstream tables clientbound ones.
type Tables struct {
	tables map[parser.Direction]map[session.Phase]*packet.Table
}

// NewTables registers the full packet set.
func NewTables(logger *slog.Logger) *Tables {
	if logger == nil {
		logger = slog.Default()
	}
	newTable := func(dir parser.Direction, phase session.Phase) *packet.Table {
		return packet.NewTable(fmt.Sprintf("%s/%s", bound(dir), phase), logger)
	}

	t := &Tables{tables: map[parser.Direction]map[session.Phase]*packet.Table{
		parser.Upstream:   {},
		parser.Downstream: {},
	}}

	t.tables[parser.Upstream][session.Handshaking] = newTable(parser.Upstream, session.Handshaking).
		Register(HandshakeID, func() packet.Packet { return &Handshake{} }).
		Register(LegacyServerListPingID, func() packet.Packet { return &LegacyServerListPing{} })
	t.tables[parser.Upstream][session.Status] = newTable(parser.Upstream, session.Status).
		Register(StatusRequestID, func() packet.Packet { return &StatusRequest{} }).
		Register(PingRequestID, func() packet.Packet { return &PingRequest{} })
	t.tables[parser.Upstream][session.Login] = newTable(parser.Upstream, session.Login).
		Register(LoginStartID, func() packet.Packet { return &LoginStart{} }).
		Register(EncryptionResponseID, func() packet.Packet { return &EncryptionResponse{} }).
		Register(LoginPluginResponseID, func() packet.Packet { return &LoginPluginResponse{} }).
		Register(LoginAcknowledgedID, func() packet.Packet { return &LoginAcknowledged{} }).
		Register(CookieResponseID, func() packet.Packet { return &CookieResponse{} })

	t.tables[parser.Downstream][session.Handshaking] = newTable(parser.Downstream, session.Handshaking)
	t.tables[parser.Downstream][session.Status] = newTable(parser.Downstream, session.Status).
		Register(StatusResponseID, func() packet.Packet { return &StatusResponse{} }).
		Register(PongResponseID, func() packet.Packet { return &PongResponse{} })
	t.tables[parser.Downstream][session.Login] = newTable(parser.Downstream, session.Login).
		Register(DisconnectID, func() packet.Packet { return &Disconnect{} }).
		Register(EncryptionRequestID, func() packet.Packet { return &EncryptionRequest{} }).
		Register(LoginSuccessID, func() packet.Packet { return &LoginSuccess{} }).
		Register(SetCompressionID, func() packet.Packet { return &SetCompression{} }).
		Register(LoginPluginRequestID, func() packet.Packet { return &LoginPluginRequest{} }).
		Register(CookieRequestID, func() packet.Packet { return &CookieRequest{} })

	return t
}

// Table returns the table for packets flowing in dir during phase. The
// protocol version is accepted so tables can diverge per version later; all
// supported versions currently share one layout.
func (t *Tables) Table(dir parser.Direction, phase session.Phase, protocolVersion int32) *packet.Table {
	return t.tables[dir][phase]
}

func bound(dir parser.Direction) string {
	if dir == parser.Upstream {
		return "serverbound"
	}
	return "clientbound"
}
