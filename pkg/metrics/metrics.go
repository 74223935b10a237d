// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package metrics provides Prometheus instrumentation for mcsniff.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for mcsniff. All methods are safe to
// call on a nil *Metrics.
type Metrics struct {
	// Connection metrics
	ActiveConnections  *prometheus.GaugeVec
	TotalConnections   *prometheus.CounterVec
	ConnectionErrors   *prometheus.CounterVec
	ConnectionDuration *prometheus.HistogramVec

	// Frame metrics
	FramesTotal    *prometheus.CounterVec
	FrameSize      *prometheus.HistogramVec
	UnknownPackets *prometheus.CounterVec
	DecodeErrors   *prometheus.CounterVec

	// Session metrics
	Handshakes          *prometheus.CounterVec
	CompressionEnabled  prometheus.Counter
	InspectionsDone     *prometheus.CounterVec
	EncryptionRefused   prometheus.Counter
	ValidationRejection *prometheus.CounterVec

	// Backend metrics
	BackendErrors   *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec

	// Rate limiter metrics
	RateLimitedConnections prometheus.Counter
}

// New creates a new Metrics instance registered with reg. A nil reg uses the
// default registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "mcsniff"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		ActiveConnections: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_connections",
				Help:      "Number of currently active connections",
			},
			[]string{"protocol"},
		),
		TotalConnections: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_total",
				Help:      "Total number of connections",
			},
			[]string{"protocol", "status"},
		),
		ConnectionErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connection_errors_total",
				Help:      "Total number of connection errors",
			},
			[]string{"protocol", "error_type"},
		),
		ConnectionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "connection_duration_seconds",
				Help:      "Connection duration in seconds",
				Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300, 600, 3600},
			},
			[]string{"protocol"},
		),
		FramesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Total number of relayed frames",
			},
			[]string{"direction", "phase"},
		),
		FrameSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "frame_size_bytes",
				Help:      "Uncompressed frame payload size in bytes",
				Buckets:   []float64{8, 64, 256, 1024, 8192, 65536, 524288, 2097152},
			},
			[]string{"direction"},
		),
		UnknownPackets: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unknown_packets_total",
				Help:      "Total number of inspected packets with an unregistered id",
			},
			[]string{"direction", "phase"},
		),
		DecodeErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_errors_total",
				Help:      "Total number of packet bodies that failed to decode",
			},
			[]string{"direction", "error_type"},
		),
		Handshakes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handshakes_total",
				Help:      "Total number of handshakes by requested phase",
			},
			[]string{"next_phase"},
		),
		CompressionEnabled: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compression_enabled_total",
				Help:      "Total number of connections that switched to compression",
			},
		),
		InspectionsDone: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inspections_done_total",
				Help:      "Total number of connections whose inspection finished",
			},
			[]string{"phase"},
		),
		EncryptionRefused: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "encryption_refused_total",
				Help:      "Total number of connections closed because the upstream requested encryption",
			},
		),
		ValidationRejection: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_rejections_total",
				Help:      "Total number of frames rejected by a validator",
			},
			[]string{"direction"},
		),
		BackendErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_errors_total",
				Help:      "Total number of backend errors",
			},
			[]string{"backend", "error_type"},
		),
		BackendDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_dial_duration_seconds",
				Help:      "Backend dial duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		CircuitBreakerState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half_open, 2=open)",
			},
			[]string{"backend"},
		),
		CircuitBreakerTrips: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"backend"},
		),
		RateLimitedConnections: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_connections_total",
				Help:      "Total number of connections refused by the rate limiter",
			},
		),
	}
}

// ObserveConnection tracks a connection lifecycle.
func (m *Metrics) ObserveConnection(protocol string, f func() error) error {
	if m == nil {
		return f()
	}
	m.ActiveConnections.WithLabelValues(protocol).Inc()
	defer m.ActiveConnections.WithLabelValues(protocol).Dec()

	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		m.ConnectionDuration.WithLabelValues(protocol).Observe(duration)
	}()

	err := f()
	status := "success"
	if err != nil {
		status = "error"
	}
	m.TotalConnections.WithLabelValues(protocol, status).Inc()

	return err
}

// ObserveDial tracks one backend dial.
func (m *Metrics) ObserveDial(backend string, f func() error) error {
	if m == nil {
		return f()
	}
	start := time.Now()
	err := f()
	m.BackendDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	return err
}

// Frame counts one relayed frame.
func (m *Metrics) Frame(direction, phase string, size int) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(direction, phase).Inc()
	m.FrameSize.WithLabelValues(direction).Observe(float64(size))
}

// UnknownPacket counts an inspected packet without a table entry.
func (m *Metrics) UnknownPacket(direction, phase string) {
	if m == nil {
		return
	}
	m.UnknownPackets.WithLabelValues(direction, phase).Inc()
}

// DecodeError counts a packet body that failed to decode.
func (m *Metrics) DecodeError(direction, errorType string) {
	if m == nil {
		return
	}
	m.DecodeErrors.WithLabelValues(direction, errorType).Inc()
}

// Handshake counts a handshake by the phase it requested.
func (m *Metrics) Handshake(nextPhase string) {
	if m == nil {
		return
	}
	m.Handshakes.WithLabelValues(nextPhase).Inc()
}

// Compression counts a connection switching to compression.
func (m *Metrics) Compression() {
	if m == nil {
		return
	}
	m.CompressionEnabled.Inc()
}

// InspectionDone counts a connection leaving inspection in phase.
func (m *Metrics) InspectionDone(phase string) {
	if m == nil {
		return
	}
	m.InspectionsDone.WithLabelValues(phase).Inc()
}

// EncryptionRefusal counts a refused encryption request.
func (m *Metrics) EncryptionRefusal() {
	if m == nil {
		return
	}
	m.EncryptionRefused.Inc()
}

// Rejected counts a frame rejected by a validator.
func (m *Metrics) Rejected(direction string) {
	if m == nil {
		return
	}
	m.ValidationRejection.WithLabelValues(direction).Inc()
}

// ConnectionError counts a connection ending with errorType.
func (m *Metrics) ConnectionError(protocol, errorType string) {
	if m == nil {
		return
	}
	m.ConnectionErrors.WithLabelValues(protocol, errorType).Inc()
}

// BackendError counts a failed backend dial.
func (m *Metrics) BackendError(backend, errorType string) {
	if m == nil {
		return
	}
	m.BackendErrors.WithLabelValues(backend, errorType).Inc()
}

// BreakerState records a circuit breaker state change.
func (m *Metrics) BreakerState(backend string, state int, tripped bool) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(backend).Set(float64(state))
	if tripped {
		m.CircuitBreakerTrips.WithLabelValues(backend).Inc()
	}
}

// RateLimited counts a connection refused by the rate limiter.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedConnections.Inc()
}
