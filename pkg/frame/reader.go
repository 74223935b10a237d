// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"errors"
	"fmt"
	"io"
	"time"

	perrors "github.com/absmach/mcsniff/pkg/errors"
)

const defaultBufferSize = 4096

// Option configures a Reader.
type Option func(*Reader)

// WithBufferSize sets the initial read buffer size.
func WithBufferSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.buf = make([]byte, n)
		}
	}
}

// WithIdleTimeout sets a read deadline before every socket read when the
// source supports deadlines. Zero disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Reader) {
		r.idle = d
	}
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Reader splits a byte stream into frame payloads. Bytes are buffered, so a
// frame may arrive in any number of reads and one read may carry several
// frames. Each buffered frame is unwrapped with the compression setting in
// force when it is returned.
type Reader struct {
	src   io.Reader
	c     *Compression
	buf   []byte
	start int
	end   int
	idle  time.Duration
	err   error
}

// NewReader returns a Reader over src sharing the setting c.
func NewReader(src io.Reader, c *Compression, opts ...Option) *Reader {
	r := &Reader{src: src, c: c}
	for _, opt := range opts {
		opt(r)
	}
	if r.buf == nil {
		r.buf = make([]byte, defaultBufferSize)
	}
	return r
}

// Compression returns the setting the Reader uses.
func (r *Reader) Compression() *Compression {
	return r.c
}

// Buffered returns the number of bytes read from the source but not yet
// returned as frames.
func (r *Reader) Buffered() int {
	return r.end - r.start
}

// ReadFrame returns the next frame payload, VarInt(id) ++ body. Source
// errors, EOF included, are returned as errors.ErrConnectionClosed.
func (r *Reader) ReadFrame() ([]byte, error) {
	for {
		if r.end > r.start {
			body, n, err := Parse(r.buf[r.start:r.end])
			if err == nil {
				r.start += n
				return Payload(body, r.c.Enabled())
			}
			if !errors.Is(err, perrors.ErrTruncatedInput) {
				return nil, err
			}
		}
		if r.err != nil {
			return nil, fmt.Errorf("%w: %w", perrors.ErrConnectionClosed, r.err)
		}
		r.fill()
	}
}

func (r *Reader) fill() {
	if r.start > 0 {
		r.end = copy(r.buf, r.buf[r.start:r.end])
		r.start = 0
	}
	if r.end == len(r.buf) {
		grown := make([]byte, 2*len(r.buf))
		copy(grown, r.buf[:r.end])
		r.buf = grown
	}
	if r.idle > 0 {
		if d, ok := r.src.(deadliner); ok {
			if err := d.SetReadDeadline(time.Now().Add(r.idle)); err != nil {
				r.err = err
				return
			}
		}
	}
	n, err := r.src.Read(r.buf[r.end:])
	r.end += n
	r.err = err
}
