// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package tcp implements the TCP listener of mcsniff.
//
// # Overview
//
// The server accepts client connections, dials the upstream server for each
// one and hands both sockets to a parser.Parser, which relays frames in both
// directions. It supports TLS termination, per-host rate limiting, a circuit
// breaker around upstream dials and graceful shutdown.
//
// # Architecture
//
//	┌─────────┐         ┌─────────┐         ┌──────────┐
//	│ Client  │ ←─TCP─→ │  Server │ ←─TCP─→ │ Upstream │
//	└─────────┘         └─────────┘         └──────────┘
//	                         ↓
//	                    ┌─────────┐
//	                    │  Relay  │
//	                    └─────────┘
//	                         ↓
//	                    ┌─────────┐
//	                    │ Handler │
//	                    └─────────┘
//
// # Connection Flow
//
//  1. Client connects and is checked against the rate limiter
//  2. handler.AuthConnect authorizes the client
//  3. Server dials the upstream through the circuit breaker
//  4. Server spawns two goroutines:
//     - Upstream: Client → Server (conn.Parse(ctx, Upstream))
//     - Downstream: Server → Client (conn.Parse(ctx, Downstream))
//  5. Both goroutines run until their direction ends
//  6. Server calls handler.OnDisconnect()
//  7. Both connections closed
//
// # Ending a Direction
//
// When one direction ends because its source closed or a validator rejected
// a frame, the socket it writes to is half-closed. The peer sees end of
// stream and the opposite direction drains on its own. Errors that leave the
// stream out of sync, such as a malformed length prefix or a decompression
// size mismatch, close both sockets at once.
//
// # Graceful Shutdown
//
// When the context is canceled:
//
//  1. Server stops accepting new connections
//  2. Server waits for existing connections (with timeout)
//  3. After ShutdownTimeout, forcefully closes remaining connections
//  4. Returns ErrShutdownTimeout if timeout exceeded
//
// # Tracing
//
// Every connection runs inside a server span named "mcsniff.connection".
// The relay adds events to it for the handshake, compression and the end of
// inspection.
//
// # Example
//
//	p := relay.New(relay.Config{Logger: logger})
//
//	cfg := tcp.Config{
//		Address:         ":25565",
//		TargetAddress:   "backend:25565",
//		ShutdownTimeout: 30 * time.Second,
//		Breaker:         breaker.New(breaker.Config{}),
//	}
//
//	server := tcp.New(cfg, p, &handler.NoopHandler{})
//	if err := server.Listen(ctx); err != nil {
//		log.Fatal(err)
//	}
package tcp
