// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package errors provides structured error handling for mcsniff.
package errors

import (
	"errors"
	"fmt"
)

// Decode errors.
var (
	// ErrTruncatedInput indicates the source ran out of bytes mid-value.
	// At the frame layer it only means "read more"; inside a complete frame it
	// means the frame body is shorter than its layout.
	ErrTruncatedInput = errors.New("truncated input")

	// ErrMalformedVarint indicates an overlong VarInt or VarLong encoding.
	ErrMalformedVarint = errors.New("malformed varint")

	// ErrInvalidLength indicates a negative or out-of-range length prefix.
	ErrInvalidLength = errors.New("invalid length")

	// ErrDecompressionSizeMismatch indicates the inflated body does not match the
	// declared uncompressed size.
	ErrDecompressionSizeMismatch = errors.New("decompression size mismatch")

	// ErrFrameTooLarge indicates a frame or declared body exceeds the protocol limits.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrMalformedPacket indicates a packet that drives session state could not be decoded.
	ErrMalformedPacket = errors.New("malformed control packet")
)

// Connection errors.
var (
	// ErrConnectionClosed indicates the peer closed the connection or the socket failed.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrValidationRejected indicates a caller-supplied validator declined a frame.
	ErrValidationRejected = errors.New("validation rejected")

	// ErrUnsupportedEncryption indicates the upstream server requested encryption.
	ErrUnsupportedEncryption = errors.New("upstream requested encryption")

	// ErrUpstreamUnavailable indicates the upstream server could not be reached.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrRateLimited indicates the connection rate limit was exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ProxyError wraps an error with connection context.
type ProxyError struct {
	Op         string // Operation that failed
	Direction  string // upstream or downstream, empty for connection-level errors
	SessionID  string // Session identifier
	RemoteAddr string // Client address
	Err        error  // Underlying error
}

// Error implements the error interface.
func (e *ProxyError) Error() string {
	op := e.Op
	if e.Direction != "" {
		op = e.Direction + " " + op
	}
	if e.SessionID != "" {
		return fmt.Sprintf("%s [%s] %s: %v", op, e.SessionID, e.RemoteAddr, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", op, e.RemoteAddr, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProxyError) Unwrap() error {
	return e.Err
}

// New creates a new ProxyError.
func New(op, direction, sessionID, remoteAddr string, err error) error {
	if err == nil {
		return nil
	}
	return &ProxyError{
		Op:         op,
		Direction:  direction,
		SessionID:  sessionID,
		RemoteAddr: remoteAddr,
		Err:        err,
	}
}

// Wrap wraps an error with context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsFatal reports whether err desynchronizes the stream, so the whole
// connection has to be torn down rather than just one direction.
func IsFatal(err error) bool {
	return errors.Is(err, ErrMalformedVarint) ||
		errors.Is(err, ErrDecompressionSizeMismatch) ||
		errors.Is(err, ErrFrameTooLarge) ||
		errors.Is(err, ErrInvalidLength) ||
		errors.Is(err, ErrMalformedPacket) ||
		errors.Is(err, ErrUnsupportedEncryption)
}

// Kind returns a stable label for err, used for metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMalformedPacket):
		return "malformed_packet"
	case errors.Is(err, ErrTruncatedInput):
		return "truncated_input"
	case errors.Is(err, ErrMalformedVarint):
		return "malformed_varint"
	case errors.Is(err, ErrInvalidLength):
		return "invalid_length"
	case errors.Is(err, ErrDecompressionSizeMismatch):
		return "decompression_size_mismatch"
	case errors.Is(err, ErrFrameTooLarge):
		return "frame_too_large"
	case errors.Is(err, ErrConnectionClosed):
		return "connection_closed"
	case errors.Is(err, ErrValidationRejected):
		return "validation_rejected"
	case errors.Is(err, ErrUnsupportedEncryption):
		return "unsupported_encryption"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "other"
	}
}
