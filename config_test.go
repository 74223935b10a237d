// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mcsniff_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/mcsniff"
	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := mcsniff.NewConfig(env.Options{Prefix: mcsniff.EnvPrefix, Environment: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, ":25565", cfg.ListenAddress)
	assert.Equal(t, "localhost:25566", cfg.UpstreamAddress)
	assert.Equal(t, ":9090", cfg.AdminAddress)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Zero(t, cfg.IdleTimeout)
	assert.Zero(t, cfg.RateLimitBurst)
	assert.False(t, cfg.Tracing)

	tlsCfg, err := cfg.TLSConfig()
	require.NoError(t, err)
	assert.Nil(t, tlsCfg)
}

func TestNewConfigFromEnvironment(t *testing.T) {
	cfg, err := mcsniff.NewConfig(env.Options{
		Prefix: mcsniff.EnvPrefix,
		Environment: map[string]string{
			"MCSNIFF_LISTEN_ADDRESS":       "0.0.0.0:25577",
			"MCSNIFF_UPSTREAM_ADDRESS":     "mc.internal:25565",
			"MCSNIFF_IDLE_TIMEOUT":         "2m",
			"MCSNIFF_RATE_LIMIT_BURST":     "20",
			"MCSNIFF_RATE_LIMIT_RATE":      "0.5",
			"MCSNIFF_BREAKER_MAX_FAILURES": "3",
			"MCSNIFF_LOG_FORMAT":           "text",
			"MCSNIFF_TRACING":              "true",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:25577", cfg.ListenAddress)
	assert.Equal(t, "mc.internal:25565", cfg.UpstreamAddress)
	assert.Equal(t, 2*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.InDelta(t, 0.5, cfg.RateLimitRate, 1e-9)
	assert.Equal(t, 3, cfg.BreakerMaxFailures)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.Tracing)
}

func TestNewConfigInvalid(t *testing.T) {
	_, err := mcsniff.NewConfig(env.Options{
		Prefix:      mcsniff.EnvPrefix,
		Environment: map[string]string{"MCSNIFF_DIAL_TIMEOUT": "soon"},
	})
	assert.Error(t, err)
}

func TestTLSConfigMissingFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := mcsniff.Config{
		CertFile: filepath.Join(dir, "cert.pem"),
		KeyFile:  filepath.Join(dir, "key.pem"),
	}
	_, err := cfg.TLSConfig()
	assert.Error(t, err)
}

func TestTLSConfigBadClientCA(t *testing.T) {
	dir := t.TempDir()
	ca := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(ca, []byte("not a certificate"), 0o600))

	cfg := mcsniff.Config{
		CertFile:     filepath.Join(dir, "cert.pem"),
		KeyFile:      filepath.Join(dir, "key.pem"),
		ClientCAFile: ca,
	}
	_, err := cfg.TLSConfig()
	assert.Error(t, err)
}
