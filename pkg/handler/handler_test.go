// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"testing"
)

// mockHandler records calls for testing.
type mockHandler struct {
	ConnectCalled     bool
	HandshakeCalled   bool
	LoginCalled       bool
	CompressionCalled bool
	InspectionCalled  bool
	DisconnectCalled  bool

	LastThreshold int
	LastUsername  string

	ConnectErr error
}

func (m *mockHandler) AuthConnect(ctx context.Context, hctx *Context) error {
	m.ConnectCalled = true
	return m.ConnectErr
}

func (m *mockHandler) OnHandshake(ctx context.Context, hctx *Context) error {
	m.HandshakeCalled = true
	return nil
}

func (m *mockHandler) OnLogin(ctx context.Context, hctx *Context) error {
	m.LoginCalled = true
	m.LastUsername = hctx.Username
	return nil
}

func (m *mockHandler) OnCompression(ctx context.Context, hctx *Context, threshold int) error {
	m.CompressionCalled = true
	m.LastThreshold = threshold
	return nil
}

func (m *mockHandler) OnInspectionDone(ctx context.Context, hctx *Context) error {
	m.InspectionCalled = true
	return nil
}

func (m *mockHandler) OnDisconnect(ctx context.Context, hctx *Context) error {
	m.DisconnectCalled = true
	return nil
}

var _ Handler = (*mockHandler)(nil)

func TestNoopHandler(t *testing.T) {
	h := &NoopHandler{}
	ctx := context.Background()
	hctx := &Context{
		SessionID:       "test-session",
		RemoteAddr:      "127.0.0.1:54321",
		Protocol:        "minecraft",
		ProtocolVersion: 767,
	}

	if err := h.AuthConnect(ctx, hctx); err != nil {
		t.Errorf("AuthConnect should not return error: %v", err)
	}
	if err := h.OnHandshake(ctx, hctx); err != nil {
		t.Errorf("OnHandshake should not return error: %v", err)
	}
	if err := h.OnLogin(ctx, hctx); err != nil {
		t.Errorf("OnLogin should not return error: %v", err)
	}
	if err := h.OnCompression(ctx, hctx, 256); err != nil {
		t.Errorf("OnCompression should not return error: %v", err)
	}
	if err := h.OnInspectionDone(ctx, hctx); err != nil {
		t.Errorf("OnInspectionDone should not return error: %v", err)
	}
	if err := h.OnDisconnect(ctx, hctx); err != nil {
		t.Errorf("OnDisconnect should not return error: %v", err)
	}
}

func TestMockHandler(t *testing.T) {
	mock := &mockHandler{ConnectErr: errors.New("rejected")}
	ctx := context.Background()
	hctx := &Context{SessionID: "test", Username: "Notch"}

	if err := mock.AuthConnect(ctx, hctx); err == nil {
		t.Error("Expected error from AuthConnect")
	}
	if !mock.ConnectCalled {
		t.Error("Expected ConnectCalled to be true")
	}

	if err := mock.OnLogin(ctx, hctx); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if mock.LastUsername != "Notch" {
		t.Errorf("Expected username Notch, got %s", mock.LastUsername)
	}

	if err := mock.OnCompression(ctx, hctx, 64); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if mock.LastThreshold != 64 {
		t.Errorf("Expected threshold 64, got %d", mock.LastThreshold)
	}
}

func TestValidatorSignature(t *testing.T) {
	var got int32
	var v Validator = func(frame []byte, protocolVersion int32) error {
		got = protocolVersion
		if len(frame) == 0 {
			return errors.New("empty frame")
		}
		return nil
	}

	if err := v([]byte{0x00}, 767); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if got != 767 {
		t.Errorf("Expected protocol version 767, got %d", got)
	}
	if err := v(nil, 767); err == nil {
		t.Error("Expected error for empty frame")
	}
}
