// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"io"

	"github.com/absmach/mcsniff/pkg/handler"
)

// Direction indicates the direction of packet flow.
type Direction int

const (
	// Upstream represents packets flowing from client to backend server.
	Upstream Direction = iota

	// Downstream represents packets flowing from backend server to client.
	Downstream
)

// String returns a string representation of the direction.
func (d Direction) String() string {
	switch d {
	case Upstream:
		return "upstream"
	case Downstream:
		return "downstream"
	default:
		return "unknown"
	}
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Upstream {
		return Downstream
	}
	return Upstream
}

// Parser creates the per-connection protocol state for a proxied connection.
type Parser interface {
	// NewConn binds a client stream and an upstream stream. The handler h
	// is notified of session events; hctx carries the connection metadata
	// and is updated as packets are inspected.
	NewConn(client, server io.ReadWriter, h handler.Handler, hctx *handler.Context) Conn
}

// Conn is the protocol state of one proxied connection, shared by both
// directions.
//
// Parse is called in a loop for each direction on its own goroutine. It
// should:
// - Read exactly one frame from the source of dir
// - Inspect it while the session state is still unresolved
// - Write it to the destination of dir
// - Return errors.ErrConnectionClosed when the source is gone
// - Return other errors for abnormal termination
type Conn interface {
	Parse(ctx context.Context, dir Direction) error
}
