// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package session tracks the protocol phase of one proxied connection.
package session

import (
	"fmt"
	"sync"
)

// Phase selects the packet id space of a connection.
type Phase int

const (
	Handshaking Phase = iota
	Status
	Login
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case Handshaking:
		return "handshaking"
	case Status:
		return "status"
	case Login:
		return "login"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase maps a handshake next_state value to a phase. Only Status (1)
// and Login (2) can be requested.
func ParsePhase(nextState int32) (Phase, bool) {
	switch nextState {
	case 1:
		return Status, true
	case 2:
		return Login, true
	default:
		return Handshaking, false
	}
}

// UnknownVersion is the protocol version before the handshake is seen.
const UnknownVersion int32 = -1

// Snapshot is a point-in-time copy of a State.
type Snapshot struct {
	Phase           Phase
	ProtocolVersion int32
	InspectionDone  bool
}

// State is the connection state shared by the two relay directions.
// It only moves forward: phases never return to Handshaking and inspection,
// once done, stays done.
type State struct {
	mu      sync.Mutex
	phase   Phase
	version int32
	done    bool
}

// New returns a State in Handshaking with an unknown protocol version.
func New() *State {
	return &State{version: UnknownVersion}
}

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Phase: s.phase, ProtocolVersion: s.version, InspectionDone: s.done}
}

// ProtocolVersion returns the version recorded from the handshake.
func (s *State) ProtocolVersion() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// ApplyHandshake records the client's protocol version and moves to the
// requested phase. An unrecognized next state keeps the phase and returns
// false. Calls outside Handshaking are ignored.
func (s *State) ApplyHandshake(version, nextState int32) (Phase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Handshaking || s.done {
		return s.phase, false
	}
	s.version = version
	next, ok := ParsePhase(nextState)
	if !ok {
		return s.phase, false
	}
	s.phase = next
	return next, true
}

// Finish marks inspection as done. It reports whether this call changed it.
func (s *State) Finish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return false
	}
	s.done = true
	return true
}
