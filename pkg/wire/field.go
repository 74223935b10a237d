// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"

	"github.com/google/uuid"
)

// Field is a value with a canonical wire encoding. The zero value of every
// Field type is its default. Encode never fails; Decode returns
// errors.ErrTruncatedInput when r holds fewer bytes than the layout needs.
type Field interface {
	Encode(w *Writer)
	Decode(r *Reader) error
}

// Encoder is the write half of Field. Value types satisfy it without taking
// their address.
type Encoder interface {
	Encode(w *Writer)
}

// Struct is a composite value. Its encoding is the concatenation of its
// fields in the order Fields returns them, with no padding.
type Struct interface {
	Fields() []Field
}

// FieldPtr constrains PT to be a pointer to T implementing Field. It lets
// generic containers construct fresh elements.
type FieldPtr[T any] interface {
	*T
	Field
}

// EncodeFields writes every field of s in declaration order.
func EncodeFields(w *Writer, s Struct) {
	for _, f := range s.Fields() {
		f.Encode(w)
	}
}

// DecodeFields reads every field of s in declaration order.
func DecodeFields(r *Reader, s Struct) error {
	for i, f := range s.Fields() {
		if err := f.Decode(r); err != nil {
			return fmt.Errorf("field %d (%T): %w", i, f, err)
		}
	}
	return nil
}

// Marshal returns the encoding of e.
func Marshal(e Encoder) []byte {
	w := NewWriter(64)
	e.Encode(w)
	return w.Bytes()
}

// Unmarshal decodes f from b. Trailing bytes are ignored.
func Unmarshal(b []byte, f Field) error {
	return f.Decode(NewReader(b))
}

// Primitive fields. Fixed-width numbers are big-endian; String is a VarInt
// byte length followed by UTF-8. Decode overwrites the receiver even when it
// returns an error.
type (
	Bool    bool
	Byte    int8
	UByte   uint8
	Short   int16
	UShort  uint16
	Int     int32
	UInt    uint32
	Long    int64
	ULong   uint64
	Float   float32
	Double  float64
	VarInt  int32
	VarLong int64
	String  string
)

// Encode implements Encoder.
func (v Bool) Encode(w *Writer) { w.WriteBool(bool(v)) }

// Decode implements Field.
func (v *Bool) Decode(r *Reader) error {
	x, err := r.ReadBool()
	*v = Bool(x)
	return err
}

// Encode implements Encoder.
func (v Byte) Encode(w *Writer) { w.WriteInt8(int8(v)) }

// Decode implements Field.
func (v *Byte) Decode(r *Reader) error {
	x, err := r.ReadInt8()
	*v = Byte(x)
	return err
}

// Encode implements Encoder.
func (v UByte) Encode(w *Writer) { w.WriteUint8(uint8(v)) }

// Decode implements Field.
func (v *UByte) Decode(r *Reader) error {
	x, err := r.ReadUint8()
	*v = UByte(x)
	return err
}

// Encode implements Encoder.
func (v Short) Encode(w *Writer) { w.WriteInt16(int16(v)) }

// Decode implements Field.
func (v *Short) Decode(r *Reader) error {
	x, err := r.ReadInt16()
	*v = Short(x)
	return err
}

// Encode implements Encoder.
func (v UShort) Encode(w *Writer) { w.WriteUint16(uint16(v)) }

// Decode implements Field.
func (v *UShort) Decode(r *Reader) error {
	x, err := r.ReadUint16()
	*v = UShort(x)
	return err
}

// Encode implements Encoder.
func (v Int) Encode(w *Writer) { w.WriteInt32(int32(v)) }

// Decode implements Field.
func (v *Int) Decode(r *Reader) error {
	x, err := r.ReadInt32()
	*v = Int(x)
	return err
}

// Encode implements Encoder.
func (v UInt) Encode(w *Writer) { w.WriteUint32(uint32(v)) }

// Decode implements Field.
func (v *UInt) Decode(r *Reader) error {
	x, err := r.ReadUint32()
	*v = UInt(x)
	return err
}

// Encode implements Encoder.
func (v Long) Encode(w *Writer) { w.WriteInt64(int64(v)) }

// Decode implements Field.
func (v *Long) Decode(r *Reader) error {
	x, err := r.ReadInt64()
	*v = Long(x)
	return err
}

// Encode implements Encoder.
func (v ULong) Encode(w *Writer) { w.WriteUint64(uint64(v)) }

// Decode implements Field.
func (v *ULong) Decode(r *Reader) error {
	x, err := r.ReadUint64()
	*v = ULong(x)
	return err
}

// Encode implements Encoder.
func (v Float) Encode(w *Writer) { w.WriteFloat32(float32(v)) }

// Decode implements Field.
func (v *Float) Decode(r *Reader) error {
	x, err := r.ReadFloat32()
	*v = Float(x)
	return err
}

// Encode implements Encoder.
func (v Double) Encode(w *Writer) { w.WriteFloat64(float64(v)) }

// Decode implements Field.
func (v *Double) Decode(r *Reader) error {
	x, err := r.ReadFloat64()
	*v = Double(x)
	return err
}

// Encode implements Encoder.
func (v VarInt) Encode(w *Writer) { w.WriteVarInt(int32(v)) }

// Decode implements Field.
func (v *VarInt) Decode(r *Reader) error {
	x, err := r.ReadVarInt()
	*v = VarInt(x)
	return err
}

// Encode implements Encoder.
func (v VarLong) Encode(w *Writer) { w.WriteVarLong(int64(v)) }

// Decode implements Field.
func (v *VarLong) Decode(r *Reader) error {
	x, err := r.ReadVarLong()
	*v = VarLong(x)
	return err
}

// Encode implements Encoder.
func (v String) Encode(w *Writer) { w.WriteString(string(v)) }

// Decode implements Field.
func (v *String) Decode(r *Reader) error {
	x, err := r.ReadString()
	*v = String(x)
	return err
}

// UUID is a 128-bit identifier encoded as 16 raw bytes.
type UUID struct {
	uuid.UUID
}

// Encode implements Encoder.
func (v UUID) Encode(w *Writer) { w.WriteBytes(v.UUID[:]) }

// Decode implements Field.
func (v *UUID) Decode(r *Reader) error {
	b, err := r.Next(16)
	if err != nil {
		return err
	}
	copy(v.UUID[:], b)
	return nil
}

var (
	_ Field = (*Bool)(nil)
	_ Field = (*VarInt)(nil)
	_ Field = (*VarLong)(nil)
	_ Field = (*String)(nil)
	_ Field = (*UUID)(nil)
)
