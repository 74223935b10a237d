// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package relay implements the protocol inspection of a proxied connection.
//
// Each connection gets a Conn that owns the frame codecs of both sockets,
// their compression settings and the session state. While the session is
// unresolved every frame is decoded through the dispatch table of its
// direction and phase; once resolved, frames are forwarded without decoding.
// Frames are always forwarded byte for byte as received.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	perrors "github.com/absmach/mcsniff/pkg/errors"
	"github.com/absmach/mcsniff/pkg/frame"
	"github.com/absmach/mcsniff/pkg/handler"
	"github.com/absmach/mcsniff/pkg/metrics"
	"github.com/absmach/mcsniff/pkg/packet"
	"github.com/absmach/mcsniff/pkg/parser"
	"github.com/absmach/mcsniff/pkg/protocol"
	"github.com/absmach/mcsniff/pkg/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Protocol is the protocol name reported in handler contexts.
const Protocol = "minecraft"

// EncryptionRefusal is the disconnect reason sent to clients whose server
// asks for encryption.
const EncryptionRefusal = "This proxy does not support encrypted connections. Disable online mode on the server."

// Config holds the relay configuration.
type Config struct {
	// ClientValidator sees every frame sent by the client. Optional.
	ClientValidator handler.Validator

	// ServerValidator sees every frame sent by the server. Optional.
	ServerValidator handler.Validator

	// Tables selects packets by direction and phase. Defaults to the full packet set.
	Tables *protocol.Tables

	// IdleTimeout sets a read deadline on both sockets when non-zero.
	IdleTimeout time.Duration

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Logger for relay events
	Logger *slog.Logger
}

// Relay creates connection state for proxied connections.
type Relay struct {
	config Config
}

var _ parser.Parser = (*Relay)(nil)

// New creates a Relay.
func New(cfg Config) *Relay {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tables == nil {
		cfg.Tables = protocol.NewTables(cfg.Logger)
	}
	return &Relay{config: cfg}
}

// NewConn binds the client and server streams of one connection.
func (r *Relay) NewConn(client, server io.ReadWriter, h handler.Handler, hctx *handler.Context) parser.Conn {
	return r.newConn(client, server, h, hctx)
}

func (r *Relay) newConn(client, server io.ReadWriter, h handler.Handler, hctx *handler.Context) *Conn {
	if h == nil {
		h = &handler.NoopHandler{}
	}
	if hctx == nil {
		hctx = &handler.Context{}
	}
	hctx.Protocol = Protocol
	hctx.ProtocolVersion = session.UnknownVersion

	var opts []frame.Option
	if r.config.IdleTimeout > 0 {
		opts = append(opts, frame.WithIdleTimeout(r.config.IdleTimeout))
	}
	clientComp, serverComp := frame.NewCompression(), frame.NewCompression()

	return &Conn{
		config:     r.config,
		client:     client,
		clientComp: clientComp,
		serverComp: serverComp,
		clientR:    frame.NewReader(client, clientComp, opts...),
		clientW:    frame.NewWriter(client, clientComp),
		serverR:    frame.NewReader(server, serverComp, opts...),
		serverW:    frame.NewWriter(server, serverComp),
		state:      session.New(),
		handler:    h,
		hctx:       hctx,
		logger: r.config.Logger.With(
			slog.String("session", hctx.SessionID),
			slog.String("client", hctx.RemoteAddr)),
	}
}

// Conn is the relay state of one connection. Parse may be called
// concurrently for the two directions.
type Conn struct {
	config Config
	client io.ReadWriter

	clientComp *frame.Compression
	serverComp *frame.Compression
	clientR    *frame.Reader
	clientW    *frame.Writer
	serverR    *frame.Reader
	serverW    *frame.Writer

	state   *session.State
	handler handler.Handler

	mu   sync.Mutex
	hctx *handler.Context

	logger *slog.Logger
}

var _ parser.Conn = (*Conn)(nil)

// State returns the session state of the connection.
func (c *Conn) State() *session.State {
	return c.state
}

// ClientCompression returns the compression setting of the client socket.
func (c *Conn) ClientCompression() *frame.Compression {
	return c.clientComp
}

// ServerCompression returns the compression setting of the server socket.
func (c *Conn) ServerCompression() *frame.Compression {
	return c.serverComp
}

// Parse relays one frame in dir: read it, validate it, inspect it while the
// session is unresolved and forward it.
func (c *Conn) Parse(ctx context.Context, dir parser.Direction) error {
	src, dst, validate := c.route(dir)

	payload, err := src.ReadFrame()
	if err != nil {
		return err
	}

	snap := c.state.Snapshot()
	c.config.Metrics.Frame(dir.String(), snap.Phase.String(), len(payload))

	if validate != nil {
		if err := validate(payload, snap.ProtocolVersion); err != nil {
			c.config.Metrics.Rejected(dir.String())
			return fmt.Errorf("%w: %w", perrors.ErrValidationRejected, err)
		}
	}

	if !snap.InspectionDone {
		forwarded, err := c.inspect(ctx, dir, snap, payload)
		if err != nil || forwarded {
			return err
		}
	}

	return dst.WriteRaw(payload)
}

func (c *Conn) route(dir parser.Direction) (*frame.Reader, *frame.Writer, handler.Validator) {
	if dir == parser.Upstream {
		return c.clientR, c.serverW, c.config.ClientValidator
	}
	return c.serverR, c.clientW, c.config.ServerValidator
}

// inspect decodes payload and reacts to it. It reports whether it already
// forwarded the frame itself.
func (c *Conn) inspect(ctx context.Context, dir parser.Direction, snap session.Snapshot, payload []byte) (bool, error) {
	if snap.Phase == session.Status {
		c.finish(ctx, snap.Phase)
		return false, nil
	}

	table := c.config.Tables.Table(dir, snap.Phase, snap.ProtocolVersion)
	if table == nil {
		return false, nil
	}
	p, decodeErr := packet.Decode(table, payload)
	if p == nil {
		if errors.Is(decodeErr, perrors.ErrMalformedVarint) {
			return false, decodeErr
		}
		c.logger.Debug("Failed to read packet id",
			slog.String("direction", dir.String()),
			slog.String("error", decodeErr.Error()))
		return false, nil
	}

	switch pkt := p.(type) {
	case *protocol.Handshake:
		if decodeErr != nil {
			return false, fmt.Errorf("%w: handshake: %w", perrors.ErrMalformedPacket, decodeErr)
		}
		c.handshake(ctx, pkt)
		return false, nil

	case *protocol.SetCompression:
		if decodeErr != nil {
			return false, fmt.Errorf("%w: set compression: %w", perrors.ErrMalformedPacket, decodeErr)
		}
		return true, c.enableCompression(ctx, payload, int(pkt.Threshold))

	case *protocol.EncryptionRequest:
		return true, c.refuseEncryption(ctx)

	case *protocol.LoginAcknowledged:
		c.finish(ctx, snap.Phase)
		return false, nil

	case *protocol.LoginStart:
		if decodeErr == nil {
			c.login(ctx, pkt)
		}

	case *packet.Unknown:
		c.config.Metrics.UnknownPacket(dir.String(), snap.Phase.String())
	}

	if decodeErr != nil {
		c.config.Metrics.DecodeError(dir.String(), perrors.Kind(decodeErr))
		c.logger.Debug("Ignoring undecodable packet",
			slog.String("direction", dir.String()),
			slog.String("phase", snap.Phase.String()),
			slog.String("error", decodeErr.Error()))
	}
	return false, nil
}

func (c *Conn) handshake(ctx context.Context, pkt *protocol.Handshake) {
	version, nextState := int32(pkt.ProtocolVersion), int32(pkt.NextState)
	phase, ok := c.state.ApplyHandshake(version, nextState)
	if !ok {
		c.logger.Warn("Handshake requested an unsupported next state",
			slog.Int("next_state", int(nextState)),
			slog.Int("protocol_version", int(version)))
	}
	c.config.Metrics.Handshake(phase.String())

	hctx := c.updateContext(func(hctx *handler.Context) {
		hctx.ProtocolVersion = version
		hctx.ServerHost = string(pkt.ServerHost)
		hctx.ServerPort = uint16(pkt.ServerPort)
		hctx.NextState = nextState
	})
	trace.SpanFromContext(ctx).AddEvent("handshake", trace.WithAttributes(
		attribute.Int("protocol_version", int(version)),
		attribute.String("phase", phase.String())))
	c.logger.Debug("Handshake",
		slog.Int("protocol_version", int(version)),
		slog.String("host", hctx.ServerHost),
		slog.String("phase", phase.String()))
	c.notify("handshake", c.handler.OnHandshake(ctx, hctx))
}

func (c *Conn) login(ctx context.Context, pkt *protocol.LoginStart) {
	hctx := c.updateContext(func(hctx *handler.Context) {
		hctx.Username = string(pkt.Name)
	})
	c.notify("login", c.handler.OnLogin(ctx, hctx))
}

// enableCompression forwards the announcement to the client, then switches
// both sockets to compression before any later frame is written.
func (c *Conn) enableCompression(ctx context.Context, payload []byte, threshold int) error {
	if err := c.clientW.EnableCompressionAfter(payload, threshold, c.serverComp); err != nil {
		return err
	}
	c.config.Metrics.Compression()
	trace.SpanFromContext(ctx).AddEvent("compression enabled",
		trace.WithAttributes(attribute.Int("threshold", threshold)))
	c.logger.Debug("Compression enabled", slog.Int("threshold", threshold))
	c.notify("compression", c.handler.OnCompression(ctx, c.context(), threshold))
	return nil
}

// refuseEncryption tells the client why it is dropped and closes its socket.
func (c *Conn) refuseEncryption(ctx context.Context) error {
	c.config.Metrics.EncryptionRefusal()
	trace.SpanFromContext(ctx).AddEvent("encryption refused")

	disconnect, err := protocol.NewDisconnect(protocol.ChatComponent{
		Text:  EncryptionRefusal,
		Color: "red",
		Bold:  true,
	})
	if err == nil {
		err = c.clientW.WritePacket(disconnect)
	}
	if err != nil {
		c.logger.Debug("Failed to send disconnect", slog.String("error", err.Error()))
	}
	if closer, ok := c.client.(io.Closer); ok {
		closer.Close()
	}
	c.logger.Warn("Upstream requested encryption, connection closed")
	return perrors.ErrUnsupportedEncryption
}

func (c *Conn) finish(ctx context.Context, phase session.Phase) {
	if !c.state.Finish() {
		return
	}
	c.config.Metrics.InspectionDone(phase.String())
	trace.SpanFromContext(ctx).AddEvent("inspection done",
		trace.WithAttributes(attribute.String("phase", phase.String())))
	c.logger.Debug("Inspection done", slog.String("phase", phase.String()))
	c.notify("inspection done", c.handler.OnInspectionDone(ctx, c.context()))
}

// updateContext applies f to the shared handler context and returns a copy
// for handler calls.
func (c *Conn) updateContext(f func(*handler.Context)) *handler.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	f(c.hctx)
	hctx := *c.hctx
	return &hctx
}

func (c *Conn) context() *handler.Context {
	return c.updateContext(func(*handler.Context) {})
}

func (c *Conn) notify(event string, err error) {
	if err != nil {
		c.logger.Error("handler error",
			slog.String("event", event),
			slog.String("error", err.Error()))
	}
}
