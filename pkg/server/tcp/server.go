// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package tcp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/absmach/mcsniff/pkg/breaker"
	perrors "github.com/absmach/mcsniff/pkg/errors"
	"github.com/absmach/mcsniff/pkg/handler"
	"github.com/absmach/mcsniff/pkg/metrics"
	"github.com/absmach/mcsniff/pkg/parser"
	"github.com/absmach/mcsniff/pkg/ratelimit"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/absmach/mcsniff/pkg/server/tcp"

var (
	// ErrShutdownTimeout is returned when graceful shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timeout exceeded")
)

// Config holds the TCP server configuration.
type Config struct {
	// Address is the listen address (host:port)
	Address string

	// TargetAddress is the backend server address to proxy to (host:port)
	TargetAddress string

	// TLSConfig is optional TLS configuration for the listener
	TLSConfig *tls.Config

	// ShutdownTimeout is the maximum time to wait for active connections to drain
	// during graceful shutdown. After this timeout, remaining connections are
	// forcefully closed.
	ShutdownTimeout time.Duration

	// DialTimeout bounds each backend dial
	DialTimeout time.Duration

	// Breaker guards backend dials. Optional.
	Breaker *breaker.CircuitBreaker

	// Limiter limits accepted connections per client host. Optional.
	Limiter *ratelimit.Limiter

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Tracer for connection spans. Defaults to the global tracer provider.
	Tracer trace.Tracer

	// Logger for server events
	Logger *slog.Logger
}

// Server is a protocol-agnostic TCP server that accepts connections and
// proxies them to a backend server using a pluggable parser.
type Server struct {
	config  Config
	parser  parser.Parser
	handler handler.Handler
	wg      sync.WaitGroup
	mu      sync.Mutex
	addr    net.Addr
	ready   chan struct{}
}

// New creates a new TCP server with the given configuration, parser, and handler.
func New(cfg Config, p parser.Parser, h handler.Handler) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	if h == nil {
		h = &handler.NoopHandler{}
	}

	return &Server{
		config:  cfg,
		parser:  p,
		handler: h,
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the server is accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listen address, or nil before Listen bound it.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Listen starts the TCP server and blocks until the context is cancelled.
// It implements graceful shutdown with connection draining.
func (s *Server) Listen(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}

	// Wrap with TLS if configured
	if s.config.TLSConfig != nil {
		listener = tls.NewListener(listener, s.config.TLSConfig)
		s.config.Logger.Info("TLS enabled", slog.String("address", s.config.Address))
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()
	close(s.ready)

	s.config.Logger.Info("TCP server started",
		slog.String("address", listener.Addr().String()),
		slog.String("target", s.config.TargetAddress))

	// Active connections get their own context so shutdown can drain them
	// before forcing them closed.
	connCtx, connCancel := context.WithCancel(context.Background())
	defer connCancel()

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.config.Logger.Error("failed to accept connection", slog.String("error", err.Error()))
				continue
			}

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				err := s.config.Metrics.ObserveConnection("tcp", func() error {
					return s.handleConn(connCtx, conn)
				})
				if err != nil {
					s.config.Metrics.ConnectionError("tcp", perrors.Kind(err))
					s.config.Logger.Debug("connection handler error",
						slog.String("remote", conn.RemoteAddr().String()),
						slog.String("error", err.Error()))
				}
			}()
		}
	}()

	<-ctx.Done()
	s.config.Logger.Info("shutdown signal received, closing listener")

	if err := listener.Close(); err != nil {
		s.config.Logger.Error("error closing listener", slog.String("error", err.Error()))
	}
	<-acceptDone

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.config.Logger.Info("all connections closed gracefully")
		return nil
	case <-time.After(s.config.ShutdownTimeout):
		s.config.Logger.Warn("shutdown timeout exceeded, forcing connection closure")
		connCancel()
		select {
		case <-done:
		case <-time.After(1 * time.Second):
		}
		return ErrShutdownTimeout
	}
}

// handleConn processes a single client connection by:
// 1. Rate limiting and authorizing the client
// 2. Dialing the backend server through the circuit breaker
// 3. Running both relay directions until they end
// 4. Cleaning up both connections when done
func (s *Server) handleConn(ctx context.Context, inbound net.Conn) error {
	defer inbound.Close()

	if s.config.Limiter != nil && !s.config.Limiter.AllowAddr(inbound.RemoteAddr()) {
		s.config.Metrics.RateLimited()
		return perrors.New("accept", "", "", inbound.RemoteAddr().String(), perrors.ErrRateLimited)
	}

	sessionID := uuid.New().String()
	hctx := &handler.Context{
		SessionID:  sessionID,
		RemoteAddr: inbound.RemoteAddr().String(),
		Protocol:   "tcp",
	}

	// Extract client certificate if using TLS
	if tlsConn, ok := inbound.(*tls.Conn); ok {
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return fmt.Errorf("TLS handshake failed: %w", err)
		}
		state := tlsConn.ConnectionState()
		if len(state.PeerCertificates) > 0 {
			hctx.Cert = state.PeerCertificates[0]
		}
	}

	ctx, span := s.config.Tracer.Start(ctx, "mcsniff.connection",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("mcsniff.session_id", sessionID),
			attribute.String("mcsniff.client", hctx.RemoteAddr),
			attribute.String("mcsniff.target", s.config.TargetAddress),
		))
	defer span.End()

	err := s.serve(ctx, inbound, hctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

func (s *Server) serve(ctx context.Context, inbound net.Conn, hctx *handler.Context) error {
	if err := s.handler.AuthConnect(ctx, hctx); err != nil {
		return perrors.New("auth", "", hctx.SessionID, hctx.RemoteAddr, err)
	}

	outbound, err := s.dial(ctx)
	if err != nil {
		return perrors.New("dial", "", hctx.SessionID, hctx.RemoteAddr, err)
	}
	defer outbound.Close()

	// Shutdown past the drain timeout closes both sockets, which ends both
	// directions.
	stop := context.AfterFunc(ctx, func() {
		inbound.Close()
		outbound.Close()
	})
	defer stop()

	s.config.Logger.Debug("connection established",
		slog.String("session", hctx.SessionID),
		slog.String("client", hctx.RemoteAddr),
		slog.String("backend", s.config.TargetAddress))

	conn := s.parser.NewConn(inbound, outbound, s.handler, hctx)

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.stream(ctx, conn, parser.Upstream, inbound, outbound)
	}()
	go func() {
		errCh <- s.stream(ctx, conn, parser.Downstream, inbound, outbound)
	}()

	var streamErr error
	for i := 0; i < 2; i++ {
		err := <-errCh
		if err != nil && !errors.Is(err, perrors.ErrConnectionClosed) && streamErr == nil {
			streamErr = err
		}
	}

	if err := s.handler.OnDisconnect(context.Background(), hctx); err != nil {
		s.config.Logger.Error("disconnect handler error",
			slog.String("session", hctx.SessionID),
			slog.String("error", err.Error()))
	}

	s.config.Logger.Debug("connection closed",
		slog.String("session", hctx.SessionID))

	return streamErr
}

func (s *Server) dial(ctx context.Context) (net.Conn, error) {
	dial := func(ctx context.Context) (net.Conn, error) {
		d := net.Dialer{Timeout: s.config.DialTimeout}
		return d.DialContext(ctx, "tcp", s.config.TargetAddress)
	}

	var conn net.Conn
	err := s.config.Metrics.ObserveDial(s.config.TargetAddress, func() error {
		var err error
		if s.config.Breaker != nil {
			conn, err = breaker.Execute(ctx, s.config.Breaker, dial)
		} else {
			conn, err = dial(ctx)
		}
		return err
	})
	if err != nil {
		s.config.Metrics.BackendError(s.config.TargetAddress, perrors.Kind(err))
		if errors.Is(err, perrors.ErrUpstreamUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", perrors.ErrUpstreamUnavailable, s.config.TargetAddress, err)
	}
	return conn, nil
}

// stream relays frames in one direction until an error or context
// cancellation. When the direction ends on its own, the socket it writes to
// is half-closed so the peer sees EOF and the other direction drains. Fatal
// errors close both sockets at once.
func (s *Server) stream(ctx context.Context, conn parser.Conn, dir parser.Direction, inbound, outbound net.Conn) error {
	dst := outbound
	if dir == parser.Downstream {
		dst = inbound
	}

	var err error
	for err == nil {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		default:
			err = conn.Parse(ctx, dir)
		}
	}

	if perrors.IsFatal(err) || errors.Is(err, context.Canceled) {
		inbound.Close()
		outbound.Close()
	} else {
		closeWrite(dst)
	}

	if errors.Is(err, perrors.ErrConnectionClosed) {
		return err
	}
	return perrors.New("relay", dir.String(), "", inbound.RemoteAddr().String(), err)
}

func closeWrite(c net.Conn) {
	if cw, ok := c.(interface{ CloseWrite() error }); ok {
		if cw.CloseWrite() == nil {
			return
		}
	}
	c.Close()
}
