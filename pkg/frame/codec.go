// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	perrors "github.com/absmach/mcsniff/pkg/errors"
	"github.com/absmach/mcsniff/pkg/wire"
	"github.com/klauspost/compress/zlib"
)

const (
	// MaxFrameLength is the largest frame length a 3-byte VarInt can carry.
	MaxFrameLength = 1<<21 - 1
	// MaxUncompressedLength bounds the declared size of a compressed body.
	MaxUncompressedLength = 8 << 20
	// maxLengthBytes is the VarInt length of MaxFrameLength.
	maxLengthBytes = 3
)

// Parse peeks one frame at the start of b. It returns the frame body, which
// aliases b, and the number of bytes the whole frame occupies. It returns
// errors.ErrTruncatedInput when b holds only part of a frame. A prefix that
// still carries the continuation bit in its 5th byte is
// errors.ErrMalformedVarint; a well-formed prefix wider than 3 bytes is
// errors.ErrFrameTooLarge.
func Parse(b []byte) (body []byte, n int, err error) {
	length, k, err := wire.DecodeVarInt(b)
	if err != nil {
		return nil, 0, err
	}
	if length < 0 || length > MaxFrameLength || k > maxLengthBytes {
		return nil, 0, fmt.Errorf("frame length %d: %w", length, perrors.ErrFrameTooLarge)
	}
	end := k + int(length)
	if len(b) < end {
		return nil, 0, perrors.ErrTruncatedInput
	}
	return b[k:end], end, nil
}

// Payload unwraps a frame body into the packet payload VarInt(id) ++ body.
// With compression enabled the body starts with the uncompressed size; zero
// means the rest is stored literally. The result never aliases body.
func Payload(body []byte, enabled bool) ([]byte, error) {
	if !enabled {
		return bytes.Clone(body), nil
	}
	size, k, err := wire.DecodeVarInt(body)
	if err != nil {
		if errors.Is(err, perrors.ErrTruncatedInput) {
			return nil, fmt.Errorf("missing uncompressed size: %w", perrors.ErrInvalidLength)
		}
		return nil, err
	}
	rest := body[k:]
	switch {
	case size == 0:
		return bytes.Clone(rest), nil
	case size < 0:
		return nil, fmt.Errorf("uncompressed size %d: %w", size, perrors.ErrInvalidLength)
	case size > MaxUncompressedLength:
		return nil, fmt.Errorf("uncompressed size %d: %w", size, perrors.ErrFrameTooLarge)
	}
	return inflate(rest, int(size))
}

func inflate(b []byte, size int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", perrors.ErrDecompressionSizeMismatch, err)
	}
	defer zr.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("inflated fewer than %d bytes: %w", size, perrors.ErrDecompressionSizeMismatch)
	}
	// Drain to EOF so the trailing Adler-32 checksum is verified.
	var extra [1]byte
	n, err := zr.Read(extra[:])
	if n > 0 {
		return nil, fmt.Errorf("inflated more than %d bytes: %w", size, perrors.ErrDecompressionSizeMismatch)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", perrors.ErrDecompressionSizeMismatch, err)
	}
	return out, nil
}

// Encode frames payload under the given setting. Payloads at or above the
// threshold are zlib compressed; shorter ones get a zero size marker. An empty
// payload is always stored literally since a zero size means "not compressed".
func Encode(payload []byte, enabled bool, threshold int) ([]byte, error) {
	return encode(nil, payload, enabled, threshold, nil)
}

// encode appends the frame to dst. A non-nil zw is reset and reused.
func encode(dst, payload []byte, enabled bool, threshold int, zw *zlib.Writer) ([]byte, error) {
	if !enabled {
		if len(payload) > MaxFrameLength {
			return nil, fmt.Errorf("payload of %d bytes: %w", len(payload), perrors.ErrFrameTooLarge)
		}
		dst = wire.AppendVarInt(dst, int32(len(payload)))
		return append(dst, payload...), nil
	}

	if len(payload) < threshold || len(payload) == 0 {
		if len(payload)+1 > MaxFrameLength {
			return nil, fmt.Errorf("payload of %d bytes: %w", len(payload), perrors.ErrFrameTooLarge)
		}
		dst = wire.AppendVarInt(dst, int32(len(payload)+1))
		dst = append(dst, 0)
		return append(dst, payload...), nil
	}

	if len(payload) > MaxUncompressedLength {
		return nil, fmt.Errorf("payload of %d bytes: %w", len(payload), perrors.ErrFrameTooLarge)
	}
	var buf bytes.Buffer
	if zw == nil {
		zw = zlib.NewWriter(&buf)
	} else {
		zw.Reset(&buf)
	}
	if _, err := zw.Write(payload); err != nil {
		return nil, perrors.Wrap(err, "deflate")
	}
	if err := zw.Close(); err != nil {
		return nil, perrors.Wrap(err, "deflate")
	}

	length := wire.VarIntSize(int32(len(payload))) + buf.Len()
	if length > MaxFrameLength {
		return nil, fmt.Errorf("compressed frame of %d bytes: %w", length, perrors.ErrFrameTooLarge)
	}
	dst = wire.AppendVarInt(dst, int32(length))
	dst = wire.AppendVarInt(dst, int32(len(payload)))
	return append(dst, buf.Bytes()...), nil
}
