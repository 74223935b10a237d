// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pass(context.Context) error { return nil }
func fail(context.Context) error { return errors.New("down") }

func TestHealthStatus(t *testing.T) {
	cases := []struct {
		desc   string
		checks map[string]CheckFunc
		want   Status
	}{
		{"no checks", nil, StatusHealthy},
		{"all pass", map[string]CheckFunc{"a": pass, "b": pass}, StatusHealthy},
		{"some fail", map[string]CheckFunc{"a": pass, "b": fail}, StatusDegraded},
		{"all fail", map[string]CheckFunc{"a": fail}, StatusUnhealthy},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			c := NewChecker(time.Minute)
			for name, fn := range tc.checks {
				c.Register(name, fn)
			}
			status, checks := c.Health(context.Background())
			assert.Equal(t, tc.want, status)
			assert.Len(t, checks, len(tc.checks))
		})
	}
}

func TestHealthCache(t *testing.T) {
	calls := 0
	c := NewChecker(time.Minute)
	c.Register("counted", func(context.Context) error {
		calls++
		return nil
	})

	c.Health(context.Background())
	c.Health(context.Background())
	assert.Equal(t, 1, calls)
}

func TestDialCheck(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()

	assert.NoError(t, DialCheck(addr, time.Second)(context.Background()))

	l.Close()
	assert.Error(t, DialCheck(addr, time.Second)(context.Background()))
}

func TestHandlers(t *testing.T) {
	c := NewChecker(time.Minute)
	c.Register("upstream", pass)
	c.Register("other", fail)

	rec := httptest.NewRecorder()
	c.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, StatusDegraded, body.Status)
	assert.Len(t, body.Checks, 2)

	rec = httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
