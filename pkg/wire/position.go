// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wire

// Position is a block coordinate packed into one 64-bit word: x in the top
// 26 bits, z in the next 26 and y in the low 12. Coordinates outside those
// ranges wrap.
type Position struct {
	X, Y, Z int32
}

// Pack returns the 64-bit word for p.
func (p Position) Pack() int64 {
	x := int64(p.X) & 0x3FFFFFF
	z := int64(p.Z) & 0x3FFFFFF
	y := int64(p.Y) & 0xFFF
	return x<<38 | z<<12 | y
}

// UnpackPosition sign-extends each coordinate out of v.
func UnpackPosition(v int64) Position {
	return Position{
		X: int32(v >> 38),
		Y: int32(v << 52 >> 52),
		Z: int32(v << 26 >> 38),
	}
}

func (p Position) Encode(w *Writer) { w.WriteInt64(p.Pack()) }

func (p *Position) Decode(r *Reader) error {
	v, err := r.ReadInt64()
	if err != nil {
		return err
	}
	*p = UnpackPosition(v)
	return nil
}
