// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package admin_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/absmach/mcsniff/pkg/admin"
	"github.com/absmach/mcsniff/pkg/health"
	"github.com/absmach/mcsniff/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New("mcsniff", reg)
	m.Handshake("login")

	checker := health.NewChecker(time.Minute)
	checker.Register("upstream", func(context.Context) error { return nil })
	checker.Register("breaker", func(context.Context) error { return errors.New("open") })

	router := admin.New(admin.Config{Gatherer: reg, Health: checker, Logger: discard}).Router()

	cases := []struct {
		desc     string
		path     string
		status   int
		contains string
	}{
		{desc: "metrics", path: "/metrics", status: http.StatusOK, contains: "mcsniff_handshakes_total"},
		{desc: "degraded health", path: "/health", status: http.StatusOK, contains: `"degraded"`},
		{desc: "degraded readiness", path: "/ready", status: http.StatusServiceUnavailable, contains: `"degraded"`},
		{desc: "liveness", path: "/live", status: http.StatusOK},
		{desc: "pprof disabled", path: "/debug/pprof/", status: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, tc.status, rec.Code)
			if tc.contains != "" {
				assert.Contains(t, rec.Body.String(), tc.contains)
			}
		})
	}
}

func TestHealthBody(t *testing.T) {
	checker := health.NewChecker(time.Minute)
	checker.Register("upstream", func(context.Context) error { return nil })
	router := admin.New(admin.Config{Gatherer: prometheus.NewRegistry(), Health: checker, Logger: discard}).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string `json:"status"`
		Checks []struct {
			Name string `json:"name"`
		} `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	require.Len(t, body.Checks, 1)
	assert.Equal(t, "upstream", body.Checks[0].Name)
}

func TestPprof(t *testing.T) {
	router := admin.New(admin.Config{Gatherer: prometheus.NewRegistry(), EnablePprof: true, Logger: discard}).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListen(t *testing.T) {
	s := admin.New(admin.Config{Address: "127.0.0.1:0", Gatherer: prometheus.NewRegistry(), Logger: discard})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Listen(ctx) }()

	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("admin server did not start")
	}

	resp, err := http.Get("http://" + s.Addr().String() + "/live")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "alive"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("admin server did not stop")
	}
}
