// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"fmt"

	perrors "github.com/absmach/mcsniff/pkg/errors"
)

// Optional is a value preceded by a one-byte presence flag. An absent value
// encodes as the flag alone.
type Optional[T any, PT FieldPtr[T]] struct {
	Value   T
	Present bool
}

// Some returns a present Optional holding v.
func Some[T any, PT FieldPtr[T]](v T) Optional[T, PT] {
	return Optional[T, PT]{Value: v, Present: true}
}

// Encode implements Encoder.
func (o Optional[T, PT]) Encode(w *Writer) {
	w.WriteBool(o.Present)
	if o.Present {
		PT(&o.Value).Encode(w)
	}
}

// Decode implements Field.
func (o *Optional[T, PT]) Decode(r *Reader) error {
	present, err := r.ReadBool()
	if err != nil {
		return err
	}
	var v T
	if present {
		if err := PT(&v).Decode(r); err != nil {
			return err
		}
	}
	o.Value, o.Present = v, present
	return nil
}

// Array is a VarInt-length-prefixed homogeneous sequence.
type Array[T any, PT FieldPtr[T]] []T

// Encode implements Encoder.
func (a Array[T, PT]) Encode(w *Writer) {
	w.WriteVarInt(int32(len(a)))
	for i := range a {
		PT(&a[i]).Encode(w)
	}
}

// Decode implements Field.
func (a *Array[T, PT]) Decode(r *Reader) error {
	n, err := r.ReadLength()
	if err != nil {
		return err
	}
	out := make([]T, n)
	for i := range out {
		if err := PT(&out[i]).Decode(r); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	*a = out
	return nil
}

// ByteArray is a VarInt-length-prefixed byte string.
type ByteArray []byte

// Encode implements Encoder.
func (b ByteArray) Encode(w *Writer) {
	w.WriteVarInt(int32(len(b)))
	w.WriteBytes(b)
}

// Decode implements Field.
func (b *ByteArray) Decode(r *Reader) error {
	n, err := r.ReadLength()
	if err != nil {
		return err
	}
	p, err := r.Next(n)
	if err != nil {
		return err
	}
	*b = append(ByteArray(nil), p...)
	return nil
}

// Sizer fixes the length of a FixedBytes.
type Sizer interface {
	Size() int
}

// Size16 is the Sizer for 16-byte arrays.
type Size16 struct{}

// Size returns 16.
func (Size16) Size() int { return 16 }

// Size256 is the Sizer for 256-byte arrays.
type Size256 struct{}

// Size returns 256.
func (Size256) Size() int { return 256 }

// FixedBytes is a byte array with a length known from the layout, encoded
// without a prefix. Short data is zero padded and long data truncated.
type FixedBytes[S Sizer] []byte

// Encode implements Encoder.
func (b FixedBytes[S]) Encode(w *Writer) {
	var s S
	n := s.Size()
	if len(b) >= n {
		w.WriteBytes(b[:n])
		return
	}
	w.WriteBytes(b)
	w.WriteBytes(make([]byte, n-len(b)))
}

// Decode implements Field.
func (b *FixedBytes[S]) Decode(r *Reader) error {
	var s S
	p, err := r.Next(s.Size())
	if err != nil {
		return err
	}
	*b = append(FixedBytes[S](nil), p...)
	return nil
}

// RestBuffer holds every byte that remains in the enclosing frame.
type RestBuffer []byte

// Encode implements Encoder.
func (b RestBuffer) Encode(w *Writer) { w.WriteBytes(b) }

// Decode implements Field.
func (b *RestBuffer) Decode(r *Reader) error {
	*b = append(RestBuffer(nil), r.Rest()...)
	return nil
}

// Length is the set of integer fields that can carry an element count.
type Length interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64
}

// PrefixedArray is a homogeneous sequence whose element count is encoded by
// the field L, for layouts that count with something other than a VarInt.
// Encode truncates the count to L, so callers keep len within its range.
type PrefixedArray[L Length, PL FieldPtr[L], T any, PT FieldPtr[T]] []T

// Encode implements Encoder.
func (a PrefixedArray[L, PL, T, PT]) Encode(w *Writer) {
	n := L(len(a))
	PL(&n).Encode(w)
	for i := range a {
		PT(&a[i]).Encode(w)
	}
}

// Decode implements Field. Counts that are negative or exceed the remaining
// bytes are rejected before allocating.
func (a *PrefixedArray[L, PL, T, PT]) Decode(r *Reader) error {
	start := r.off
	var l L
	if err := PL(&l).Decode(r); err != nil {
		return err
	}
	n := int64(l)
	if n < 0 || n > int64(r.Remaining()) {
		r.off = start
		return fmt.Errorf("count %d with %d remaining bytes: %w", n, r.Remaining(), perrors.ErrInvalidLength)
	}
	out := make([]T, n)
	for i := range out {
		if err := PT(&out[i]).Decode(r); err != nil {
			r.off = start
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	*a = out
	return nil
}

// topBit marks that another element follows in a TopBitTerminatedArray.
const topBit = 0x80

// TopBitTerminatedArray is a sequence with no count: the top bit of each
// element's first byte is set when another element follows. Elements must
// encode to at least one byte with that bit clear. An empty array encodes
// to nothing and cannot be decoded.
type TopBitTerminatedArray[T any, PT FieldPtr[T]] []T

// Encode implements Encoder.
func (a TopBitTerminatedArray[T, PT]) Encode(w *Writer) {
	for i := range a {
		first := len(w.buf)
		PT(&a[i]).Encode(w)
		if len(w.buf) == first {
			continue
		}
		if i < len(a)-1 {
			w.buf[first] |= topBit
		} else {
			w.buf[first] &^= topBit
		}
	}
}

// Decode implements Field. Elements decode from a copy whose marker bits are
// cleared, so the frame bytes stay untouched.
func (a *TopBitTerminatedArray[T, PT]) Decode(r *Reader) error {
	buf := bytes.Clone(r.buf[r.off:])
	sub := NewReader(buf)
	var out []T
	for more := true; more; {
		if sub.Remaining() == 0 {
			return perrors.ErrTruncatedInput
		}
		more = buf[sub.off]&topBit != 0
		buf[sub.off] &^= topBit
		var v T
		if err := PT(&v).Decode(sub); err != nil {
			return fmt.Errorf("element %d: %w", len(out), err)
		}
		out = append(out, v)
	}
	r.off += sub.off
	*a = out
	return nil
}

// BitSet is a VarInt-counted sequence of 64-bit words. Bit i lives in word
// i/64 at position i%64.
type BitSet []uint64

// Get reports whether bit i is set. Bits past the end are clear.
func (b BitSet) Get(i int) bool {
	w := i / 64
	if i < 0 || w >= len(b) {
		return false
	}
	return b[w]&(1<<(i%64)) != 0
}

// Set sets bit i, growing b as needed. Negative indexes are ignored.
func (b *BitSet) Set(i int) {
	if i < 0 {
		return
	}
	w := i / 64
	for len(*b) <= w {
		*b = append(*b, 0)
	}
	(*b)[w] |= 1 << (i % 64)
}

// Encode implements Encoder.
func (b BitSet) Encode(w *Writer) {
	w.WriteVarInt(int32(len(b)))
	for _, word := range b {
		w.WriteUint64(word)
	}
}

// Decode implements Field.
func (b *BitSet) Decode(r *Reader) error {
	start := r.off
	n, err := r.ReadLength()
	if err != nil {
		return err
	}
	if n*8 > r.Remaining() {
		r.off = start
		return fmt.Errorf("%d words with %d remaining bytes: %w", n, r.Remaining(), perrors.ErrInvalidLength)
	}
	out := make(BitSet, n)
	for i := range out {
		out[i], _ = r.ReadUint64()
	}
	*b = out
	return nil
}

var (
	_ Field = (*BitSet)(nil)
	_ Field = (*PrefixedArray[UByte, *UByte, String, *String])(nil)
	_ Field = (*TopBitTerminatedArray[UByte, *UByte])(nil)
)
