// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package frame

import "sync"

// DefaultThreshold is the threshold a connection carries before the server
// announces its own.
const DefaultThreshold = 256

// Compression is the compression setting of one socket. The Reader and
// Writer of that socket share it, so a change applies to the next frame in
// both directions of the socket.
type Compression struct {
	mu        sync.RWMutex
	enabled   bool
	threshold int
}

// NewCompression returns a disabled setting with DefaultThreshold.
func NewCompression() *Compression {
	return &Compression{threshold: DefaultThreshold}
}

// Load returns the current setting.
func (c *Compression) Load() (enabled bool, threshold int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled, c.threshold
}

// Enabled reports whether compression is on.
func (c *Compression) Enabled() bool {
	enabled, _ := c.Load()
	return enabled
}

// Threshold returns the current threshold.
func (c *Compression) Threshold() int {
	_, threshold := c.Load()
	return threshold
}

// Enable turns compression on with the given threshold. A negative
// threshold turns it off again.
func (c *Compression) Enable(threshold int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(threshold)
}

func (c *Compression) set(threshold int) {
	if threshold < 0 {
		c.enabled = false
		return
	}
	c.enabled, c.threshold = true, threshold
}
