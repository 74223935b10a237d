// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const tracerName = "github.com/absmach/mcsniff"

// newTracerProvider returns a provider that batches finished connection
// spans into the process log.
func newTracerProvider(logger *slog.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "mcsniff"),
			attribute.String("service.version", version),
		)),
		sdktrace.WithBatcher(logExporter{logger: logger}),
	)
}

// logExporter writes each span as one structured log line.
type logExporter struct {
	logger *slog.Logger
}

// ExportSpans implements sdktrace.SpanExporter.
func (e logExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		events := make([]string, 0, len(s.Events()))
		for _, ev := range s.Events() {
			events = append(events, ev.Name)
		}
		attrs := []any{
			slog.String("span", s.Name()),
			slog.String("trace_id", s.SpanContext().TraceID().String()),
			slog.String("span_id", s.SpanContext().SpanID().String()),
			slog.Duration("duration", s.EndTime().Sub(s.StartTime())),
			slog.String("status", s.Status().Code.String()),
			slog.Any("events", events),
		}
		for _, kv := range s.Attributes() {
			attrs = append(attrs, slog.String(string(kv.Key), kv.Value.Emit()))
		}
		e.logger.InfoContext(ctx, "span finished", attrs...)
	}
	return nil
}

func (e logExporter) Shutdown(context.Context) error { return nil }
