// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package proxy_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/absmach/mcsniff/pkg/frame"
	"github.com/absmach/mcsniff/pkg/handler"
	"github.com/absmach/mcsniff/pkg/health"
	"github.com/absmach/mcsniff/pkg/packet"
	"github.com/absmach/mcsniff/pkg/protocol"
	"github.com/absmach/mcsniff/pkg/proxy"
	"github.com/absmach/mcsniff/pkg/wire"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// loginBackend plays the server side of a login with compression.
func loginBackend(t *testing.T, threshold int32) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		c := frame.NewCompression()
		r, w := frame.NewReader(conn, c), frame.NewWriter(conn, c)
		for i := 0; i < 2; i++ {
			if _, err := r.ReadFrame(); err != nil {
				return
			}
		}
		if err := w.EnableCompressionAfter(packet.Marshal(&protocol.SetCompression{Threshold: wire.VarInt(threshold)}), int(threshold)); err != nil {
			return
		}
		success := &protocol.LoginSuccess{
			UUID:     wire.UUID{UUID: uuid.New()},
			Username: "Steve",
		}
		if err := w.WritePacket(success); err != nil {
			return
		}
		io.Copy(io.Discard, conn)
	}()
	return l.Addr().String()
}

type loginHandler struct {
	handler.NoopHandler

	mu        sync.Mutex
	username  string
	threshold int
}

func (h *loginHandler) OnLogin(ctx context.Context, hctx *handler.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.username = hctx.Username
	return nil
}

func (h *loginHandler) OnCompression(ctx context.Context, hctx *handler.Context, threshold int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.threshold = threshold
	return nil
}

func TestNewRequiresAddresses(t *testing.T) {
	_, err := proxy.New(proxy.Config{Upstream: "127.0.0.1:25565"}, nil)
	assert.ErrorIs(t, err, proxy.ErrMissingAddress)

	_, err = proxy.New(proxy.Config{Address: "127.0.0.1:0"}, nil)
	assert.ErrorIs(t, err, proxy.ErrMissingUpstream)
}

func TestLoginWithCompression(t *testing.T) {
	upstream := loginBackend(t, 64)

	var (
		mu       sync.Mutex
		versions []int32
	)
	validator := func(frame []byte, protocolVersion int32) error {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, protocolVersion)
		return nil
	}

	h := &loginHandler{}
	p, err := proxy.New(proxy.Config{
		Address:         "127.0.0.1:0",
		Upstream:        upstream,
		ClientValidator: validator,
		ShutdownTimeout: time.Second,
		RateLimit:       proxy.RateLimitConfig{Burst: 5, Rate: 1},
		Logger:          discard,
	}, h)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Listen(ctx) }()

	select {
	case <-p.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("proxy did not start")
	}

	conn, err := net.Dial("tcp", p.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	c := frame.NewCompression()
	r, w := frame.NewReader(conn, c), frame.NewWriter(conn, c)
	require.NoError(t, w.WritePacket(&protocol.Handshake{
		ProtocolVersion: 767,
		ServerHost:      "localhost",
		ServerPort:      25565,
		NextState:       2,
	}))
	require.NoError(t, w.WritePacket(&protocol.LoginStart{Name: "Steve"}))

	payload, err := r.ReadFrame()
	require.NoError(t, err)
	id, body, err := packet.ReadID(payload)
	require.NoError(t, err)
	require.Equal(t, protocol.SetCompressionID, id)

	var threshold wire.VarInt
	require.NoError(t, wire.Unmarshal(body, &threshold))
	assert.EqualValues(t, 64, threshold)
	c.Enable(int(threshold))

	payload, err = r.ReadFrame()
	require.NoError(t, err)
	id, _, err = packet.ReadID(payload)
	require.NoError(t, err)
	assert.Equal(t, protocol.LoginSuccessID, id)

	h.mu.Lock()
	assert.Equal(t, "Steve", h.username)
	assert.Equal(t, 64, h.threshold)
	h.mu.Unlock()

	mu.Lock()
	assert.Equal(t, []int32{-1, 767}, versions)
	mu.Unlock()

	conn.Close()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("proxy did not stop")
	}
}

func TestStartRejectsEmptyUpstream(t *testing.T) {
	err := proxy.Start(context.Background(), "127.0.0.1:0", "", nil, nil)
	assert.ErrorIs(t, err, proxy.ErrMissingUpstream)
}

func TestStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- proxy.Start(ctx, "127.0.0.1:0", "127.0.0.1:25565", nil, nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.False(t, errors.Is(err, proxy.ErrMissingAddress))
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestHealthReportsUnreachableUpstream(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	upstream := l.Addr().String()
	require.NoError(t, l.Close())

	p, err := proxy.New(proxy.Config{Address: "127.0.0.1:0", Upstream: upstream, Logger: discard}, nil)
	require.NoError(t, err)

	status, checks := p.Health().Health(context.Background())
	assert.Equal(t, health.StatusDegraded, status)
	require.Len(t, checks, 2)
	for _, c := range checks {
		if c.Name == "upstream" {
			assert.Equal(t, health.StatusUnhealthy, c.Status)
		} else {
			assert.Equal(t, health.StatusHealthy, c.Status)
		}
	}
}
