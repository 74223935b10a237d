// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"crypto/x509"
)

// Context contains connection metadata and the session details learned from
// inspected packets. It is passed to Handler methods.
type Context struct {
	// SessionID is a unique identifier for this connection/session
	SessionID string

	// RemoteAddr is the client's network address
	RemoteAddr string

	// Protocol names the proxied protocol
	Protocol string

	// ProtocolVersion is the version announced in the handshake, -1 before it
	ProtocolVersion int32

	// ServerHost and ServerPort are the address the client asked for in the handshake
	ServerHost string
	ServerPort uint16

	// NextState is the raw next_state of the handshake
	NextState int32

	// Username is the player name from the login start packet
	Username string

	// Cert is the client's TLS certificate (if using mTLS)
	Cert *x509.Certificate
}

// Validator inspects a raw frame payload, VarInt(id) ++ body, before it is
// forwarded. A non-nil error ends that relay direction.
type Validator func(frame []byte, protocolVersion int32) error

// Handler defines authorization and notification callbacks for session events.
//
// AuthConnect is called before the upstream connection is dialed and can
// reject the client. The On* methods are notifications; their errors are
// logged but never stop the relay.
type Handler interface {
	// AuthConnect authorizes a newly accepted client connection.
	// Return an error to reject the connection.
	AuthConnect(ctx context.Context, hctx *Context) error

	// OnHandshake is called once the client's handshake has been decoded.
	OnHandshake(ctx context.Context, hctx *Context) error

	// OnLogin is called when the client starts a login with its player name.
	OnLogin(ctx context.Context, hctx *Context) error

	// OnCompression is called after both sides of the connection switched to
	// compression with the given threshold.
	OnCompression(ctx context.Context, hctx *Context, threshold int) error

	// OnInspectionDone is called once packet inspection ends and the relay
	// forwards frames without decoding them.
	OnInspectionDone(ctx context.Context, hctx *Context) error

	// OnDisconnect is called when a client disconnects (gracefully or due to error).
	OnDisconnect(ctx context.Context, hctx *Context) error
}

// NoopHandler is a Handler implementation that allows all operations.
// Useful for testing or when no authorization is needed.
type NoopHandler struct{}

var _ Handler = (*NoopHandler)(nil)

func (h *NoopHandler) AuthConnect(ctx context.Context, hctx *Context) error {
	return nil
}

func (h *NoopHandler) OnHandshake(ctx context.Context, hctx *Context) error {
	return nil
}

func (h *NoopHandler) OnLogin(ctx context.Context, hctx *Context) error {
	return nil
}

func (h *NoopHandler) OnCompression(ctx context.Context, hctx *Context, threshold int) error {
	return nil
}

func (h *NoopHandler) OnInspectionDone(ctx context.Context, hctx *Context) error {
	return nil
}

func (h *NoopHandler) OnDisconnect(ctx context.Context, hctx *Context) error {
	return nil
}
