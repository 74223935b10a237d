// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"

	perrors "github.com/absmach/mcsniff/pkg/errors"
)

// NBT tag types.
const (
	TagEnd byte = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

// MaxNBTDepth bounds list and compound nesting.
const MaxNBTDepth = 512

// NBT is an opaque network NBT value: a root tag type followed by an unnamed
// payload. The bytes are kept verbatim; decoding only walks the tag
// structure to find where the value ends. A nil NBT encodes as TAG_End,
// the empty value.
type NBT []byte

func (n NBT) Encode(w *Writer) {
	if len(n) == 0 {
		w.WriteUint8(TagEnd)
		return
	}
	w.WriteBytes(n)
}

func (n *NBT) Decode(r *Reader) error {
	start := r.Offset()
	b := r.buf[start:]
	sc := nbtScanner{r: NewReader(b)}
	if err := sc.root(); err != nil {
		return fmt.Errorf("nbt: %w", err)
	}
	size := sc.r.Offset()
	*n = append(NBT(nil), b[:size]...)
	r.off += size
	return nil
}

type nbtScanner struct {
	r *Reader
}

func (s *nbtScanner) root() error {
	tag, err := s.r.ReadUint8()
	if err != nil {
		return err
	}
	if tag == TagEnd {
		return nil
	}
	return s.payload(tag, 0)
}

func (s *nbtScanner) skip(n int) error {
	_, err := s.r.Next(n)
	return err
}

func (s *nbtScanner) count() (int, error) {
	n, err := s.r.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d: %w", n, perrors.ErrInvalidLength)
	}
	return int(n), nil
}

func (s *nbtScanner) payload(tag byte, depth int) error {
	if depth > MaxNBTDepth {
		return fmt.Errorf("nesting deeper than %d: %w", MaxNBTDepth, perrors.ErrInvalidLength)
	}
	switch tag {
	case TagByte:
		return s.skip(1)
	case TagShort:
		return s.skip(2)
	case TagInt, TagFloat:
		return s.skip(4)
	case TagLong, TagDouble:
		return s.skip(8)
	case TagByteArray, TagIntArray, TagLongArray:
		n, err := s.count()
		if err != nil {
			return err
		}
		width := 1
		switch tag {
		case TagIntArray:
			width = 4
		case TagLongArray:
			width = 8
		}
		if n > s.r.Remaining()/width {
			return perrors.ErrTruncatedInput
		}
		return s.skip(n * width)
	case TagString:
		n, err := s.r.ReadUint16()
		if err != nil {
			return err
		}
		return s.skip(int(n))
	case TagList:
		elem, err := s.r.ReadUint8()
		if err != nil {
			return err
		}
		n, err := s.count()
		if err != nil {
			return err
		}
		if n > 0 && elem == TagEnd {
			return fmt.Errorf("non-empty list of TAG_End: %w", perrors.ErrInvalidLength)
		}
		for i := 0; i < n; i++ {
			if err := s.payload(elem, depth+1); err != nil {
				return err
			}
		}
		return nil
	case TagCompound:
		for {
			t, err := s.r.ReadUint8()
			if err != nil {
				return err
			}
			if t == TagEnd {
				return nil
			}
			if err := s.payload(TagString, depth+1); err != nil {
				return err
			}
			if err := s.payload(t, depth+1); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown tag type %d: %w", tag, perrors.ErrInvalidLength)
	}
}
