// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session_test

import (
	"sync"
	"testing"

	"github.com/absmach/mcsniff/pkg/session"
	"github.com/stretchr/testify/assert"
)

func TestNewState(t *testing.T) {
	s := session.New().Snapshot()
	assert.Equal(t, session.Handshaking, s.Phase)
	assert.Equal(t, session.UnknownVersion, s.ProtocolVersion)
	assert.False(t, s.InspectionDone)
}

func TestApplyHandshake(t *testing.T) {
	cases := []struct {
		desc      string
		nextState int32
		phase     session.Phase
		ok        bool
	}{
		{"status", 1, session.Status, true},
		{"login", 2, session.Login, true},
		{"transfer", 3, session.Handshaking, false},
		{"zero", 0, session.Handshaking, false},
		{"negative", -1, session.Handshaking, false},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			s := session.New()
			phase, ok := s.ApplyHandshake(767, tc.nextState)
			assert.Equal(t, tc.phase, phase)
			assert.Equal(t, tc.ok, ok)

			snap := s.Snapshot()
			assert.Equal(t, tc.phase, snap.Phase)
			assert.Equal(t, int32(767), snap.ProtocolVersion)
		})
	}
}

func TestApplyHandshakeOnlyOnce(t *testing.T) {
	s := session.New()
	s.ApplyHandshake(767, 2)

	phase, ok := s.ApplyHandshake(5, 1)
	assert.False(t, ok)
	assert.Equal(t, session.Login, phase)
	assert.Equal(t, int32(767), s.ProtocolVersion())
}

func TestFinish(t *testing.T) {
	s := session.New()
	assert.True(t, s.Finish())
	assert.False(t, s.Finish())
	assert.True(t, s.Snapshot().InspectionDone)

	_, ok := s.ApplyHandshake(767, 1)
	assert.False(t, ok)
	assert.Equal(t, session.Handshaking, s.Snapshot().Phase)
}

func TestFinishConcurrent(t *testing.T) {
	s := session.New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	changed := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Finish() {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, changed)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "handshaking", session.Handshaking.String())
	assert.Equal(t, "status", session.Status.String())
	assert.Equal(t, "login", session.Login.String())
	assert.Equal(t, "phase(9)", session.Phase(9).String())
}
