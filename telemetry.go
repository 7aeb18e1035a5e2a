// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package linerpc

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "go.lsp.dev/linerpc"

// telemetry records a span and metrics for every dispatched request.
type telemetry struct {
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
	failures metric.Int64Counter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) *telemetry {
	meter := mp.Meter(instrumentationName)

	// instrument creation only fails on invalid names, and the returned
	// instruments are no-ops in that case
	requests, _ := meter.Int64Counter(
		"rpc.server.requests",
		metric.WithDescription("Number of dispatched JSON-RPC requests"),
		metric.WithUnit("{request}"),
	)
	duration, _ := meter.Float64Histogram(
		"rpc.server.duration",
		metric.WithDescription("Duration of JSON-RPC handler invocations"),
		metric.WithUnit("ms"),
	)
	failures, _ := meter.Int64Counter(
		"rpc.server.errors",
		metric.WithDescription("Number of JSON-RPC requests answered with an error"),
		metric.WithUnit("{error}"),
	)

	return &telemetry{
		tracer:   tp.Tracer(instrumentationName),
		requests: requests,
		duration: duration,
		failures: failures,
	}
}

// start begins recording a request for method. The returned function ends
// the recording with the error the request was answered with, if any.
func (t *telemetry) start(ctx context.Context, method string) (context.Context, func(*Error)) {
	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", "jsonrpc"),
		attribute.String("rpc.method", method),
	}

	ctx, span := t.tracer.Start(ctx, method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	t.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(rerr *Error) {
		defer span.End()

		t.duration.Record(ctx, float64(time.Since(start))/float64(time.Millisecond), metric.WithAttributes(attrs...))
		if rerr == nil {
			span.SetStatus(codes.Ok, "")
			return
		}

		code := attribute.Int64("rpc.jsonrpc.error_code", int64(rerr.Code))
		span.SetAttributes(code)
		span.SetStatus(codes.Error, rerr.Message)
		t.failures.Add(ctx, 1, metric.WithAttributes(append(attrs, code)...))
	}
}
