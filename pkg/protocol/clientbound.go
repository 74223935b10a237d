// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package protocol

import "github.com/absmach/mcsniff/pkg/wire"

// Clientbound packet ids.
const (
	StatusResponseID int32 = 0x00
	PongResponseID   int32 = 0x01

	DisconnectID         int32 = 0x00
	EncryptionRequestID  int32 = 0x01
	LoginSuccessID       int32 = 0x02
	SetCompressionID     int32 = 0x03
	LoginPluginRequestID int32 = 0x04
	CookieRequestID      int32 = 0x05
)

type StatusResponse struct {
	Response wire.JSON
}

func (p *StatusResponse) ID() int32 { return StatusResponseID }

func (p *StatusResponse) Fields() []wire.Field { return []wire.Field{&p.Response} }

type PongResponse struct {
	Time wire.Long
}

func (p *PongResponse) ID() int32 { return PongResponseID }

func (p *PongResponse) Fields() []wire.Field { return []wire.Field{&p.Time} }

// Disconnect closes a login with a chat component as the reason.
type Disconnect struct {
	Reason wire.JSON
}

func (p *Disconnect) ID() int32 { return DisconnectID }

func (p *Disconnect) Fields() []wire.Field { return []wire.Field{&p.Reason} }

// ChatComponent is the subset of the chat format used for disconnect reasons.
type ChatComponent struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
	Bold  bool   `json:"bold,omitempty"`
}

// NewDisconnect builds a Disconnect carrying c.
func NewDisconnect(c ChatComponent) (*Disconnect, error) {
	reason, err := wire.NewJSON(c)
	if err != nil {
		return nil, err
	}
	return &Disconnect{Reason: reason}, nil
}

type EncryptionRequest struct {
	ServerID           wire.String
	PublicKey          wire.ByteArray
	VerifyToken        wire.ByteArray
	ShouldAuthenticate wire.Bool
}

func (p *EncryptionRequest) ID() int32 { return EncryptionRequestID }

func (p *EncryptionRequest) Fields() []wire.Field {
	return []wire.Field{&p.ServerID, &p.PublicKey, &p.VerifyToken, &p.ShouldAuthenticate}
}

// Property is a signed profile attribute, such as textures.
type Property struct {
	Name      wire.String
	Value     wire.String
	Signature wire.Optional[wire.String, *wire.String]
}

func (p *Property) Fields() []wire.Field { return []wire.Field{&p.Name, &p.Value, &p.Signature} }

func (p *Property) Encode(w *wire.Writer) { wire.EncodeFields(w, p) }

func (p *Property) Decode(r *wire.Reader) error { return wire.DecodeFields(r, p) }

type LoginSuccess struct {
	UUID       wire.UUID
	Username   wire.String
	Properties wire.Array[Property, *Property]
}

func (p *LoginSuccess) ID() int32 { return LoginSuccessID }

func (p *LoginSuccess) Fields() []wire.Field {
	return []wire.Field{&p.UUID, &p.Username, &p.Properties}
}

// SetCompression announces the compression threshold both peers switch to
// right after this packet.
type SetCompression struct {
	Threshold wire.VarInt
}

func (p *SetCompression) ID() int32 { return SetCompressionID }

func (p *SetCompression) Fields() []wire.Field { return []wire.Field{&p.Threshold} }

type LoginPluginRequest struct {
	MessageID wire.VarInt
	Channel   wire.String
	Data      wire.RestBuffer
}

func (p *LoginPluginRequest) ID() int32 { return LoginPluginRequestID }

func (p *LoginPluginRequest) Fields() []wire.Field {
	return []wire.Field{&p.MessageID, &p.Channel, &p.Data}
}

type CookieRequest struct {
	Key wire.String
}

func (p *CookieRequest) ID() int32 { return CookieRequestID }

func (p *CookieRequest) Fields() []wire.Field { return []wire.Field{&p.Key} }
