// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package errors_test

import (
	"errors"
	"fmt"
	"testing"

	perrors "github.com/absmach/mcsniff/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestProxyError(t *testing.T) {
	err := perrors.New("relay", "upstream", "s1", "127.0.0.1:5000", perrors.ErrConnectionClosed)

	assert.Equal(t, "upstream relay [s1] 127.0.0.1:5000: connection closed", err.Error())
	assert.ErrorIs(t, err, perrors.ErrConnectionClosed)

	var pe *perrors.ProxyError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "s1", pe.SessionID)

	assert.Equal(t, "dial 10.0.0.1:1: upstream unavailable",
		perrors.New("dial", "", "", "10.0.0.1:1", perrors.ErrUpstreamUnavailable).Error())
	assert.NoError(t, perrors.New("relay", "", "", "", nil))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, perrors.Wrap(nil, "context"))

	err := perrors.Wrap(perrors.ErrInvalidLength, "string")
	assert.Equal(t, "string: invalid length", err.Error())
	assert.ErrorIs(t, err, perrors.ErrInvalidLength)
}

func TestIsFatalAndKind(t *testing.T) {
	cases := []struct {
		err   error
		fatal bool
		kind  string
	}{
		{nil, false, "none"},
		{perrors.ErrTruncatedInput, false, "truncated_input"},
		{perrors.ErrMalformedVarint, true, "malformed_varint"},
		{perrors.ErrInvalidLength, true, "invalid_length"},
		{perrors.ErrDecompressionSizeMismatch, true, "decompression_size_mismatch"},
		{perrors.ErrFrameTooLarge, true, "frame_too_large"},
		{fmt.Errorf("%w: handshake: %w", perrors.ErrMalformedPacket, perrors.ErrTruncatedInput), true, "malformed_packet"},
		{perrors.ErrConnectionClosed, false, "connection_closed"},
		{perrors.ErrValidationRejected, false, "validation_rejected"},
		{perrors.ErrUnsupportedEncryption, true, "unsupported_encryption"},
		{perrors.ErrUpstreamUnavailable, false, "upstream_unavailable"},
		{perrors.ErrRateLimited, false, "rate_limited"},
		{errors.New("boom"), false, "other"},
	}

	for _, tc := range cases {
		wrapped := perrors.New("relay", "downstream", "s", "r", tc.err)
		assert.Equal(t, tc.fatal, perrors.IsFatal(wrapped), "%v", tc.err)
		assert.Equal(t, tc.kind, perrors.Kind(wrapped), "%v", tc.err)
	}
}
