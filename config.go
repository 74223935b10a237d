// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mcsniff holds the process configuration of the mcsniff proxy.
package mcsniff

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by NewConfig.
const EnvPrefix = "MCSNIFF_"

var errCertificate = errors.New("no certificate found in client CA file")

// Config is the proxy configuration read from the environment.
type Config struct {
	ListenAddress   string `env:"LISTEN_ADDRESS"   envDefault:":25565"`
	UpstreamAddress string `env:"UPSTREAM_ADDRESS" envDefault:"localhost:25566"`
	AdminAddress    string `env:"ADMIN_ADDRESS"    envDefault:":9090"`
	EnablePprof     bool   `env:"ENABLE_PPROF"     envDefault:"false"`
	Tracing         bool   `env:"TRACING"          envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	DialTimeout     time.Duration `env:"DIAL_TIMEOUT"     envDefault:"10s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT"     envDefault:"0s"`

	BreakerMaxFailures  int           `env:"BREAKER_MAX_FAILURES"  envDefault:"5"`
	BreakerResetTimeout time.Duration `env:"BREAKER_RESET_TIMEOUT" envDefault:"30s"`

	RateLimitBurst    int     `env:"RATE_LIMIT_BURST"     envDefault:"0"`
	RateLimitRate     float64 `env:"RATE_LIMIT_RATE"      envDefault:"1"`
	RateLimitMaxHosts int     `env:"RATE_LIMIT_MAX_HOSTS" envDefault:"10000"`

	CertFile     string `env:"CERT_FILE"      envDefault:""`
	KeyFile      string `env:"KEY_FILE"       envDefault:""`
	ClientCAFile string `env:"CLIENT_CA_FILE" envDefault:""`
}

// NewConfig parses the configuration from the environment.
func NewConfig(opts env.Options) (Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return Config{}, err
	}
	return c, nil
}

// TLSConfig returns the listener TLS configuration, or nil when no
// certificate is configured. A client CA file turns on mutual TLS.
func (c Config) TLSConfig() (*tls.Config, error) {
	if c.CertFile == "" && c.KeyFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if c.ClientCAFile == "" {
		return cfg, nil
	}

	pem, err := os.ReadFile(c.ClientCAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errCertificate
	}
	cfg.ClientCAs = pool
	cfg.ClientAuth = tls.RequireAndVerifyClientCert
	return cfg, nil
}
