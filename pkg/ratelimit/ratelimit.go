// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit limits how often one remote host may open connections,
// using a token bucket per host.
package ratelimit

import (
	"net"
	"sync"
	"time"

	perrors "github.com/absmach/mcsniff/pkg/errors"
)

// ErrRateLimitExceeded is returned when rate limit is exceeded.
var ErrRateLimitExceeded = perrors.ErrRateLimited

// TokenBucket implements the token bucket algorithm for rate limiting.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
}

// NewTokenBucket creates a new token bucket rate limiter.
// capacity is the maximum number of tokens.
// refillRate is the number of tokens added per second.
func NewTokenBucket(capacity, refillRate float64) *TokenBucket {
	return newTokenBucket(capacity, refillRate, time.Now)
}

func newTokenBucket(capacity, refillRate float64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// Allow takes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// Full reports whether the bucket has refilled completely.
func (tb *TokenBucket) Full() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return tb.tokens >= tb.capacity
}

// Limiter manages per-host rate limiters.
type Limiter struct {
	mu         sync.Mutex
	limiters   map[string]*TokenBucket
	capacity   float64
	refillRate float64
	maxHosts   int
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewLimiter creates a limiter that allows burst connections per host and
// refills rate tokens per second. At most maxHosts hosts are tracked at once;
// connections from further hosts are refused until idle buckets are swept.
func NewLimiter(burst int, rate float64, maxHosts int) *Limiter {
	if maxHosts <= 0 {
		maxHosts = 10000
	}

	l := &Limiter{
		limiters:   make(map[string]*TokenBucket),
		capacity:   float64(burst),
		refillRate: rate,
		maxHosts:   maxHosts,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go l.sweepLoop(time.Minute)

	return l
}

// Allow reports whether host may open another connection.
func (l *Limiter) Allow(host string) bool {
	l.mu.Lock()
	tb, ok := l.limiters[host]
	if !ok {
		if len(l.limiters) >= l.maxHosts {
			l.mu.Unlock()
			return false
		}
		tb = newTokenBucket(l.capacity, l.refillRate, l.now)
		l.limiters[host] = tb
	}
	l.mu.Unlock()

	return tb.Allow()
}

// AllowAddr is Allow keyed by the host part of addr.
func (l *Limiter) AllowAddr(addr net.Addr) bool {
	return l.Allow(Host(addr))
}

// Host returns the host part of addr, or the whole address when it has no port.
func Host(addr net.Addr) string {
	s := addr.String()
	host, _, err := net.SplitHostPort(s)
	if err != nil {
		return s
	}
	return host
}

// Sweep drops buckets that refilled completely; they carry no state.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for host, tb := range l.limiters {
		if tb.Full() {
			delete(l.limiters, host)
		}
	}
}

func (l *Limiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-l.stop:
			return
		}
	}
}

// Stats returns the number of tracked hosts.
func (l *Limiter) Stats() (hosts int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Close stops the background sweep.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}
