// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/absmach/mcsniff/pkg/breaker"
	"github.com/absmach/mcsniff/pkg/handler"
	"github.com/absmach/mcsniff/pkg/health"
	"github.com/absmach/mcsniff/pkg/metrics"
	"github.com/absmach/mcsniff/pkg/ratelimit"
	"github.com/absmach/mcsniff/pkg/relay"
	"github.com/absmach/mcsniff/pkg/server/tcp"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrMissingAddress is returned when no listen address is configured.
	ErrMissingAddress = errors.New("missing listen address")

	// ErrMissingUpstream is returned when no upstream address is configured.
	ErrMissingUpstream = errors.New("missing upstream address")
)

// RateLimitConfig limits new connections per client host. A zero Burst
// disables limiting.
type RateLimitConfig struct {
	Burst    int
	Rate     float64
	MaxHosts int
}

// Config holds configuration for the proxy.
type Config struct {
	Address         string
	Upstream        string
	ClientValidator handler.Validator
	ServerValidator handler.Validator
	TLSConfig       *tls.Config
	ShutdownTimeout time.Duration
	DialTimeout     time.Duration
	IdleTimeout     time.Duration
	Breaker         breaker.Config
	RateLimit       RateLimitConfig
	Metrics         *metrics.Metrics
	// Tracer opens one span per client connection. Nil uses the global
	// tracer provider.
	Tracer trace.Tracer
	Logger *slog.Logger
}

// Proxy coordinates the TCP server, the relay and their resilience helpers.
type Proxy struct {
	server  *tcp.Server
	breaker *breaker.CircuitBreaker
	limiter *ratelimit.Limiter
	health  *health.Checker
}

// New creates a proxy that relays clients of cfg.Address to cfg.Upstream.
func New(cfg Config, h handler.Handler) (*Proxy, error) {
	if cfg.Address == "" {
		return nil, ErrMissingAddress
	}
	if cfg.Upstream == "" {
		return nil, ErrMissingUpstream
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cb := breaker.New(cfg.Breaker)
	cb.OnStateChange(func(from, to breaker.State) {
		cfg.Metrics.BreakerState(cfg.Upstream, int(to), to == breaker.StateOpen)
		cfg.Logger.Warn("upstream circuit breaker changed state",
			slog.String("upstream", cfg.Upstream),
			slog.String("from", from.String()),
			slog.String("to", to.String()))
	})

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Burst > 0 {
		limiter = ratelimit.NewLimiter(cfg.RateLimit.Burst, cfg.RateLimit.Rate, cfg.RateLimit.MaxHosts)
	}

	r := relay.New(relay.Config{
		ClientValidator: cfg.ClientValidator,
		ServerValidator: cfg.ServerValidator,
		IdleTimeout:     cfg.IdleTimeout,
		Metrics:         cfg.Metrics,
		Logger:          cfg.Logger,
	})

	server := tcp.New(tcp.Config{
		Address:         cfg.Address,
		TargetAddress:   cfg.Upstream,
		TLSConfig:       cfg.TLSConfig,
		ShutdownTimeout: cfg.ShutdownTimeout,
		DialTimeout:     cfg.DialTimeout,
		Breaker:         cb,
		Limiter:         limiter,
		Metrics:         cfg.Metrics,
		Tracer:          cfg.Tracer,
		Logger:          cfg.Logger,
	}, r, h)

	checker := health.NewChecker(5 * time.Second)
	checker.Register("upstream", health.DialCheck(cfg.Upstream, 2*time.Second))
	checker.Register("breaker", func(context.Context) error {
		if cb.State() == breaker.StateOpen {
			return breaker.ErrCircuitOpen
		}
		return nil
	})

	return &Proxy{
		server:  server,
		breaker: cb,
		limiter: limiter,
		health:  checker,
	}, nil
}

// Listen starts the proxy and blocks until ctx is cancelled.
func (p *Proxy) Listen(ctx context.Context) error {
	if p.limiter != nil {
		defer p.limiter.Close()
	}
	return p.server.Listen(ctx)
}

// Ready is closed once the proxy accepts connections.
func (p *Proxy) Ready() <-chan struct{} {
	return p.server.Ready()
}

// Addr returns the listen address once the proxy is ready.
func (p *Proxy) Addr() net.Addr {
	return p.server.Addr()
}

// Health returns the checker reporting on the upstream.
func (p *Proxy) Health() *health.Checker {
	return p.health
}

// Start relays every client of bindAddr to upstreamAddr until ctx is
// cancelled. Either validator may be nil.
func Start(ctx context.Context, bindAddr, upstreamAddr string, clientValidator, serverValidator handler.Validator) error {
	p, err := New(Config{
		Address:         bindAddr,
		Upstream:        upstreamAddr,
		ClientValidator: clientValidator,
		ServerValidator: serverValidator,
	}, &handler.NoopHandler{})
	if err != nil {
		return err
	}
	return p.Listen(ctx)
}
