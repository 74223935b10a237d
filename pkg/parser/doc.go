// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package parser defines the interface between the transport and protocol inspection.
//
// # Architecture Overview
//
// Servers accept client connections, dial the upstream and hand both streams
// to a Parser. The Parser returns a Conn holding the protocol state of that
// connection: frame codecs, compression settings and the session phase.
//
// # Bidirectional Flow
//
// The server runs one goroutine per direction, each calling Conn.Parse in a
// loop:
//
//	Upstream (Client → Backend):
//	  1. Read one frame from the client
//	  2. Decode it while the session phase is unresolved
//	  3. Call handler notifications
//	  4. Write the frame to the backend
//
//	Downstream (Backend → Client):
//	  1. Read one frame from the backend
//	  2. React to control packets such as compression announcements
//	  3. Write the frame to the client
//
// Both goroutines share the Conn, so implementations guard shared state.
//
// # Direction
//
// The Direction type indicates packet flow:
//   - Upstream: Client → Backend (serverbound packets)
//   - Downstream: Backend → Client (clientbound packets)
package parser
