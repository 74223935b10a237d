// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/absmach/mcsniff"
	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--short"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, version+"\n", out.String())
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--listen", ":25570", "--log-level", "debug", "--admin", ""}))

	cfg, err := mcsniff.NewConfig(env.Options{
		Prefix: mcsniff.EnvPrefix,
		Environment: map[string]string{
			"MCSNIFF_LISTEN_ADDRESS":   ":25565",
			"MCSNIFF_UPSTREAM_ADDRESS": "mc.internal:25565",
		},
	})
	require.NoError(t, err)

	var f flags
	f.listen, _ = cmd.Flags().GetString("listen")
	f.admin, _ = cmd.Flags().GetString("admin")
	f.logLevel, _ = cmd.Flags().GetString("log-level")
	f.apply(cmd, &cfg)

	assert.Equal(t, ":25570", cfg.ListenAddress)
	assert.Equal(t, "mc.internal:25565", cfg.UpstreamAddress)
	assert.Empty(t, cfg.AdminAddress)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestSetupLogger(t *testing.T) {
	var out bytes.Buffer
	logger := setupLogger(&out, "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), `"msg":"shown"`)

	out.Reset()
	setupLogger(&out, "bogus", "text").Info("plain")
	assert.True(t, strings.HasPrefix(out.String(), "time="))
}

func TestRunStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	upstream := l.Addr().String()
	require.NoError(t, l.Close())

	cfg, err := mcsniff.NewConfig(env.Options{Prefix: mcsniff.EnvPrefix, Environment: map[string]string{}})
	require.NoError(t, err)
	cfg.ListenAddress = "127.0.0.1:0"
	cfg.UpstreamAddress = upstream
	cfg.AdminAddress = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var out bytes.Buffer
	go func() { done <- run(ctx, cfg, &out) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestTracerProviderLogsSpans(t *testing.T) {
	var out bytes.Buffer
	tp := newTracerProvider(setupLogger(&out, "info", "json"))

	_, span := tp.Tracer(tracerName).Start(context.Background(), "mcsniff.connection",
		trace.WithAttributes(attribute.String("mcsniff.target", "mc.internal:25565")))
	span.AddEvent("handshake")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, out.String(), `"msg":"span finished"`)
	assert.Contains(t, out.String(), `"span":"mcsniff.connection"`)
	assert.Contains(t, out.String(), `"events":["handshake"]`)
	assert.Contains(t, out.String(), `"mcsniff.target":"mc.internal:25565"`)
}
