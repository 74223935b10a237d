// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package protocol

import "github.com/absmach/mcsniff/pkg/wire"

// Serverbound packet ids.
const (
	HandshakeID            int32 = 0x00
	LegacyServerListPingID int32 = 0xFE

	StatusRequestID int32 = 0x00
	PingRequestID   int32 = 0x01

	LoginStartID          int32 = 0x00
	EncryptionResponseID  int32 = 0x01
	LoginPluginResponseID int32 = 0x02
	LoginAcknowledgedID   int32 = 0x03
	CookieResponseID      int32 = 0x04
)

// Handshake opens every connection and selects the next phase.
type Handshake struct {
	ProtocolVersion wire.VarInt
	ServerHost      wire.String
	ServerPort      wire.UShort
	NextState       wire.VarInt
}

func (p *Handshake) ID() int32 { return HandshakeID }

func (p *Handshake) Fields() []wire.Field {
	return []wire.Field{&p.ProtocolVersion, &p.ServerHost, &p.ServerPort, &p.NextState}
}

// LegacyServerListPing is the pre-netty status probe. It is not length
// prefixed on the wire, so it only decodes when a client sends it framed.
type LegacyServerListPing struct {
	Payload wire.UByte
}

func (p *LegacyServerListPing) ID() int32 { return LegacyServerListPingID }

func (p *LegacyServerListPing) Fields() []wire.Field { return []wire.Field{&p.Payload} }

type StatusRequest struct{}

func (p *StatusRequest) ID() int32 { return StatusRequestID }

func (p *StatusRequest) Fields() []wire.Field { return nil }

type PingRequest struct {
	Time wire.Long
}

func (p *PingRequest) ID() int32 { return PingRequestID }

func (p *PingRequest) Fields() []wire.Field { return []wire.Field{&p.Time} }

type LoginStart struct {
	Name       wire.String
	PlayerUUID wire.UUID
}

func (p *LoginStart) ID() int32 { return LoginStartID }

func (p *LoginStart) Fields() []wire.Field { return []wire.Field{&p.Name, &p.PlayerUUID} }

type EncryptionResponse struct {
	SharedSecret wire.ByteArray
	VerifyToken  wire.ByteArray
}

func (p *EncryptionResponse) ID() int32 { return EncryptionResponseID }

func (p *EncryptionResponse) Fields() []wire.Field {
	return []wire.Field{&p.SharedSecret, &p.VerifyToken}
}

type LoginPluginResponse struct {
	MessageID wire.VarInt
	Data      wire.Optional[wire.RestBuffer, *wire.RestBuffer]
}

func (p *LoginPluginResponse) ID() int32 { return LoginPluginResponseID }

func (p *LoginPluginResponse) Fields() []wire.Field { return []wire.Field{&p.MessageID, &p.Data} }

// LoginAcknowledged ends the login phase. After it the connection leaves the
// phases this proxy inspects.
type LoginAcknowledged struct{}

func (p *LoginAcknowledged) ID() int32 { return LoginAcknowledgedID }

func (p *LoginAcknowledged) Fields() []wire.Field { return nil }

type CookieResponse struct {
	Key     wire.String
	Payload wire.Optional[wire.ByteArray, *wire.ByteArray]
}

func (p *CookieResponse) ID() int32 { return CookieResponseID }

func (p *CookieResponse) Fields() []wire.Field { return []wire.Field{&p.Key, &p.Payload} }
