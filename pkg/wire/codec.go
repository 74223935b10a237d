// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	perrors "github.com/absmach/mcsniff/pkg/errors"
)

// MaxStringLength is the largest string, in bytes, the protocol allows
// (32767 UTF-16 code units, at most 3 bytes each, plus slack for surrogates).
const MaxStringLength = 32767 * 4

// Writer is an append-only byte sink. Writes never fail.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the written bytes. The slice aliases the Writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Reset discards all written bytes and keeps the buffer.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// WriteBytes appends p unchanged, with no length prefix.
func (w *Writer) WriteBytes(p []byte) { w.buf = append(w.buf, p...) }

// WriteUint8 appends a single byte.
func (w *Writer) WriteUint8(v uint8) { w.buf = append(w.buf, v) }

// WriteInt8 appends v as a single two's complement byte.
func (w *Writer) WriteInt8(v int8) { w.buf = append(w.buf, byte(v)) }

// WriteUint16 appends v big-endian.
func (w *Writer) WriteUint16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }

// WriteInt16 appends v big-endian.
func (w *Writer) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }

// WriteUint32 appends v big-endian.
func (w *Writer) WriteUint32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }

// WriteInt32 appends v big-endian.
func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

// WriteUint64 appends v big-endian.
func (w *Writer) WriteUint64(v uint64) { w.buf = binary.BigEndian.AppendUint64(w.buf, v) }

// WriteInt64 appends v big-endian.
func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

// WriteFloat32 appends the IEEE 754 bits of v big-endian.
func (w *Writer) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }

// WriteFloat64 appends the IEEE 754 bits of v big-endian.
func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// WriteVarInt appends the 1 to 5 byte VarInt encoding of v.
func (w *Writer) WriteVarInt(v int32) { w.buf = AppendVarInt(w.buf, v) }

// WriteVarLong appends the 1 to 10 byte zig-zag VarLong encoding of v.
func (w *Writer) WriteVarLong(v int64) { w.buf = AppendVarLong(w.buf, v) }

// WriteBool appends 1 for true and 0 for false.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

// WriteString writes a VarInt byte length followed by the UTF-8 bytes of s.
func (w *Writer) WriteString(s string) {
	w.WriteVarInt(int32(len(s)))
	w.buf = append(w.buf, s...)
}

// Reader is a cursor over a byte slice. Every short read returns
// errors.ErrTruncatedInput and leaves the cursor where it was.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.off }

// Rest consumes and returns all unread bytes.
func (r *Reader) Rest() []byte {
	b := r.buf[r.off:]
	r.off = len(r.buf)
	return b
}

// Next consumes n bytes and returns them as a view into the underlying slice.
func (r *Reader) Next(n int) ([]byte, error) {
	if n < 0 {
		return nil, perrors.ErrInvalidLength
	}
	if r.Remaining() < n {
		return nil, perrors.ErrTruncatedInput
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, perrors.ErrTruncatedInput
	}
	c := r.buf[r.off]
	r.off++
	return c, nil
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() (uint8, error) { return r.ReadByte() }

// ReadInt8 reads a single two's complement byte.
func (r *Reader) ReadInt8() (int8, error) {
	c, err := r.ReadByte()
	return int8(c), err
}

// ReadBool reads a byte; any non-zero value is true.
func (r *Reader) ReadBool() (bool, error) {
	c, err := r.ReadByte()
	return c != 0, err
}

// ReadUint16 reads a big-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.Next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadInt16 reads a big-endian int16.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadUint32 reads a big-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.Next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadInt32 reads a big-endian int32.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads a big-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.Next(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadInt64 reads a big-endian int64.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads a big-endian IEEE 754 float32.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads a big-endian IEEE 754 float64.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadVarInt reads a VarInt. On error the cursor does not move.
func (r *Reader) ReadVarInt() (int32, error) {
	v, n, err := DecodeVarInt(r.buf[r.off:])
	if err != nil {
		return 0, err
	}
	r.off += n
	return v, nil
}

// ReadVarLong reads a zig-zag VarLong. On error the cursor does not move.
func (r *Reader) ReadVarLong() (int64, error) {
	v, n, err := DecodeVarLong(r.buf[r.off:])
	if err != nil {
		return 0, err
	}
	r.off += n
	return v, nil
}

// ReadLength reads a VarInt length prefix and checks it against the bytes
// that remain, so callers can allocate without trusting the peer.
func (r *Reader) ReadLength() (int, error) {
	start := r.off
	n, err := r.ReadVarInt()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		r.off = start
		return 0, fmt.Errorf("negative length %d: %w", n, perrors.ErrInvalidLength)
	}
	if int(n) > r.Remaining() {
		r.off = start
		return 0, fmt.Errorf("length %d exceeds %d remaining bytes: %w", n, r.Remaining(), perrors.ErrInvalidLength)
	}
	return int(n), nil
}

// ReadString reads a VarInt-length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	start := r.off
	n, err := r.ReadLength()
	if err != nil {
		return "", err
	}
	if n > MaxStringLength {
		r.off = start
		return "", fmt.Errorf("string of %d bytes: %w", n, perrors.ErrInvalidLength)
	}
	b, err := r.Next(n)
	if err != nil {
		r.off = start
		return "", err
	}
	return string(b), nil
}
