// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucket(t *testing.T) {
	now := time.Now()
	tb := newTokenBucket(2, 1, func() time.Time { return now })

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	now = now.Add(time.Second)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestLimiterPerHost(t *testing.T) {
	l := NewLimiter(1, 0.001, 0)
	defer l.Close()

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))
	assert.Equal(t, 2, l.Stats())
}

func TestLimiterMaxHosts(t *testing.T) {
	l := NewLimiter(5, 1, 1)
	defer l.Close()

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.2"))
}

func TestAllowAddr(t *testing.T) {
	l := NewLimiter(1, 0.001, 0)
	defer l.Close()

	a := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40000}
	b := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40001}
	assert.True(t, l.AllowAddr(a))
	assert.False(t, l.AllowAddr(b), "ports of one host share a bucket")
	assert.Equal(t, "127.0.0.1", Host(a))
}

func TestSweep(t *testing.T) {
	now := time.Now()
	l := NewLimiter(1, 1, 0)
	defer l.Close()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	l.Sweep()
	assert.Equal(t, 1, l.Stats())

	now = now.Add(2 * time.Second)
	l.Sweep()
	assert.Equal(t, 0, l.Stats())
}
