// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"fmt"
	"io"
	"sync"

	perrors "github.com/absmach/mcsniff/pkg/errors"
	"github.com/absmach/mcsniff/pkg/packet"
	"github.com/klauspost/compress/zlib"
)

// Writer frames payloads onto a byte stream. Writes are serialized; the
// Writer knows nothing about packet semantics.
type Writer struct {
	mu  sync.Mutex
	dst io.Writer
	c   *Compression
	zw  *zlib.Writer
	buf []byte
}

// NewWriter returns a Writer onto dst sharing the setting c.
func NewWriter(dst io.Writer, c *Compression) *Writer {
	return &Writer{dst: dst, c: c}
}

// Compression returns the setting the Writer uses.
func (w *Writer) Compression() *Compression {
	return w.c
}

// WriteRaw writes a pre-built payload, VarInt(id) ++ body, as one frame.
func (w *Writer) WriteRaw(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.write(payload)
}

// WritePacket serializes p and writes it as one frame.
func (w *Writer) WritePacket(p packet.Packet) error {
	return w.WriteRaw(packet.Marshal(p))
}

// EnableCompressionAfter writes payload with the current setting, then
// enables compression with threshold on the Writer's own setting and on every
// peer. No other frame is written through this Writer between the two steps.
func (w *Writer) EnableCompressionAfter(payload []byte, threshold int, peers ...*Compression) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.write(payload); err != nil {
		return err
	}
	w.c.Enable(threshold)
	for _, p := range peers {
		if p != nil && p != w.c {
			p.Enable(threshold)
		}
	}
	return nil
}

func (w *Writer) write(payload []byte) error {
	enabled, threshold := w.c.Load()
	if enabled && w.zw == nil {
		w.zw = zlib.NewWriter(io.Discard)
	}
	frame, err := encode(w.buf[:0], payload, enabled, threshold, w.zw)
	if err != nil {
		return err
	}
	w.buf = frame
	if _, err := w.dst.Write(frame); err != nil {
		return fmt.Errorf("%w: %w", perrors.ErrConnectionClosed, err)
	}
	return nil
}
