// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package admin serves the operational HTTP endpoints of mcsniff: Prometheus
// metrics and health probes.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/absmach/mcsniff/pkg/health"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds the admin server configuration.
type Config struct {
	// Address is the listen address (host:port)
	Address string

	// Gatherer provides the exposed metrics. Defaults to the default gatherer.
	Gatherer prometheus.Gatherer

	// Health backs /health and /ready. Without it both always report healthy.
	Health *health.Checker

	// EnablePprof mounts the runtime profiler under /debug.
	EnablePprof bool

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration

	// Logger for server events
	Logger *slog.Logger
}

// Server is the admin HTTP server.
type Server struct {
	config Config
	mu     sync.Mutex
	addr   net.Addr
	ready  chan struct{}
}

// New creates an admin server.
func New(cfg Config) *Server {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Health == nil {
		cfg.Health = health.NewChecker(0)
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{config: cfg, ready: make(chan struct{})}
}

// Router returns the admin routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/health", s.config.Health.HTTPHandler())
	r.Get("/ready", s.config.Health.ReadinessHandler())
	r.Get("/live", health.LivenessHandler())

	if s.config.EnablePprof {
		r.Mount("/debug", middleware.Profiler())
	}
	return r
}

// Ready is closed once the server is accepting requests.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listen address, or nil before Listen bound it.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Listen serves the admin routes until ctx is cancelled.
func (s *Server) Listen(ctx context.Context) error {
	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}

	s.mu.Lock()
	s.addr = l.Addr()
	s.mu.Unlock()
	close(s.ready)

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()
	s.config.Logger.Info("admin server started", slog.String("address", l.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("admin shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
