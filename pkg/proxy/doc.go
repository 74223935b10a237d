// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package proxy wires the TCP server, the relay and a handler into a
// running proxy.
//
// # Architecture
//
//	Application
//	     ↓
//	┌─────────────┐
//	│   Proxy     │  (Coordinator)
//	└─────────────┘
//	     ↓
//	┌─────────────┐
//	│ tcp.Server  │  (Transport, rate limit, circuit breaker)
//	└─────────────┘
//	     ↓
//	┌─────────────┐
//	│ relay.Relay │  (Frames, compression, phase tracking)
//	└─────────────┘
//	     ↓
//	┌─────────────┐
//	│   Handler   │  (Business Logic)
//	└─────────────┘
//
// # Usage
//
// The shortest form relays with optional validators and no handler:
//
//	err := proxy.Start(ctx, ":25565", "backend:25565", nil, nil)
//
// Config exposes the rest:
//
//	p, err := proxy.New(proxy.Config{
//		Address:   ":25565",
//		Upstream:  "backend:25565",
//		RateLimit: proxy.RateLimitConfig{Burst: 10, Rate: 1},
//		Metrics:   metrics.New("mcsniff", prometheus.DefaultRegisterer),
//		Logger:    logger,
//	}, myHandler)
//	if err != nil {
//		return err
//	}
//	return p.Listen(ctx)
//
// # Validators
//
// A handler.Validator receives every raw frame payload of its direction
// together with the protocol version announced in the handshake (-1 before
// it). Returning an error ends that direction.
package proxy
