// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package handler provides the interface that links the relay to application logic.
//
// # Data Flow
//
//	Client → Relay (decodes handshake/login) → Handler (authorizes, observes) → Upstream
//	Upstream → Relay (reacts to control packets) → Handler (notified) → Client
//
// # Handler Methods
//
// AuthConnect is called for every accepted connection before the upstream is
// dialed. Returning an error closes the client connection.
//
// Notification methods are called as the session advances:
//   - OnHandshake: protocol version and requested phase are known
//   - OnLogin: the player name is known
//   - OnCompression: both sockets switched to compressed framing
//   - OnInspectionDone: the relay stopped decoding and forwards raw frames
//   - OnDisconnect: the connection is gone
//
// # Validators
//
// A Validator sees every raw frame of one direction together with the
// protocol version. Validators run for the whole life of the connection,
// also after inspection is done.
//
// # Example
//
//	type auditHandler struct {
//		handler.NoopHandler
//		logger *slog.Logger
//	}
//
//	func (h *auditHandler) OnLogin(ctx context.Context, hctx *handler.Context) error {
//		h.logger.Info("Login", slog.String("player", hctx.Username))
//		return nil
//	}
package handler
