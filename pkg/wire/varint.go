// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"errors"
	"io"

	perrors "github.com/absmach/mcsniff/pkg/errors"
)

const (
	// MaxVarIntLen is the longest valid VarInt encoding.
	MaxVarIntLen = 5
	// MaxVarLongLen is the longest valid VarLong encoding.
	MaxVarLongLen = 10
)

// AppendVarInt appends the VarInt encoding of v to dst. Negative values are
// encoded through their unsigned 32-bit pattern and always take 5 bytes.
func AppendVarInt(dst []byte, v int32) []byte {
	uv := uint32(v)
	for uv >= 0x80 {
		dst = append(dst, byte(uv)|0x80)
		uv >>= 7
	}
	return append(dst, byte(uv))
}

// VarIntSize returns the number of bytes AppendVarInt would write for v.
func VarIntSize(v int32) int {
	uv := uint32(v)
	n := 1
	for uv >= 0x80 {
		uv >>= 7
		n++
	}
	return n
}

// DecodeVarInt decodes a VarInt from the start of b without consuming anything.
// It returns the value and the number of bytes the encoding occupies.
func DecodeVarInt(b []byte) (int32, int, error) {
	var uv uint32
	for i := 0; i < MaxVarIntLen; i++ {
		if i >= len(b) {
			return 0, 0, perrors.ErrTruncatedInput
		}
		c := b[i]
		uv |= uint32(c&0x7F) << (7 * i)
		if c&0x80 == 0 {
			return int32(uv), i + 1, nil
		}
	}
	return 0, 0, perrors.ErrMalformedVarint
}

// ReadVarInt reads a VarInt from r, consuming exactly the bytes of the encoding.
func ReadVarInt(r io.ByteReader) (int32, error) {
	var uv uint32
	for i := 0; i < MaxVarIntLen; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, sourceErr(err)
		}
		uv |= uint32(c&0x7F) << (7 * i)
		if c&0x80 == 0 {
			return int32(uv), nil
		}
	}
	return 0, perrors.ErrMalformedVarint
}

func zigzag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

func unzigzag(uv uint64) int64 {
	return int64(uv>>1) ^ -int64(uv&1)
}

// AppendVarLong appends the zig-zag VarLong encoding of v to dst.
func AppendVarLong(dst []byte, v int64) []byte {
	uv := zigzag(v)
	for uv >= 0x80 {
		dst = append(dst, byte(uv)|0x80)
		uv >>= 7
	}
	return append(dst, byte(uv))
}

// VarLongSize returns the number of bytes AppendVarLong would write for v.
func VarLongSize(v int64) int {
	uv := zigzag(v)
	n := 1
	for uv >= 0x80 {
		uv >>= 7
		n++
	}
	return n
}

// DecodeVarLong decodes a zig-zag VarLong from the start of b.
func DecodeVarLong(b []byte) (int64, int, error) {
	var uv uint64
	for i := 0; i < MaxVarLongLen; i++ {
		if i >= len(b) {
			return 0, 0, perrors.ErrTruncatedInput
		}
		c := b[i]
		uv |= uint64(c&0x7F) << (7 * i)
		if c&0x80 == 0 {
			return unzigzag(uv), i + 1, nil
		}
	}
	return 0, 0, perrors.ErrMalformedVarint
}

// ReadVarLong reads a zig-zag VarLong from r.
func ReadVarLong(r io.ByteReader) (int64, error) {
	var uv uint64
	for i := 0; i < MaxVarLongLen; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, sourceErr(err)
		}
		uv |= uint64(c&0x7F) << (7 * i)
		if c&0x80 == 0 {
			return unzigzag(uv), nil
		}
	}
	return 0, perrors.ErrMalformedVarint
}

func sourceErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return perrors.ErrTruncatedInput
	}
	return err
}
