// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package linerpc

import (
	"net"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Send indicates the message is outgoing.
	Send = "send"
	// Receive indicates the message is incoming.
	Receive = "receive"
)

// defaultDialTimeout bounds connection establishment in Dial.
const defaultDialTimeout = 5 * time.Second

type options struct {
	logger         *zap.Logger
	readTimeout    time.Duration
	writeTimeout   time.Duration
	maxFrameSize   int
	keepAlive      bool
	acceptLimiter  *rate.Limiter
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	dialer         *net.Dialer
	listenConfig   net.ListenConfig
}

// Option represents a functional option for a Client, a Server or a Channel.
//
// Options that only make sense on one side are ignored by the other.
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		maxFrameSize: DefaultMaxFrameSize,
	}
	for _, opt := range opts {
		opt(o)
	}

	// the default Logger does nothing
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	if o.dialer == nil {
		o.dialer = &net.Dialer{Timeout: defaultDialTimeout}
	}

	return o
}

// WithLogger apply custom Logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithReadTimeout bounds every frame read. Zero means no bound other than the
// context deadline.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) {
		o.readTimeout = d
	}
}

// WithWriteTimeout bounds every frame write. Zero means no bound other than
// the context deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = d
	}
}

// WithMaxFrameSize sets the largest frame payload accepted by readers.
func WithMaxFrameSize(n int) Option {
	return func(o *options) {
		o.maxFrameSize = n
	}
}

// WithKeepAlive makes the server keep serving a connection after the first
// response, until the peer closes it. With keep alive on, notifications are
// dispatched and never answered instead of dropping the connection.
//
// Server only.
func WithKeepAlive(keepAlive bool) Option {
	return func(o *options) {
		o.keepAlive = keepAlive
	}
}

// WithAcceptLimit limits the rate of accepted connections with a token
// bucket of the given rate and burst.
//
// Server only.
func WithAcceptLimit(limit rate.Limit, burst int) Option {
	return func(o *options) {
		o.acceptLimiter = rate.NewLimiter(limit, burst)
	}
}

// WithTracerProvider sets the tracer provider used for server spans.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider used for server metrics.
// Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithDialer sets the dialer used by Dial.
func WithDialer(d *net.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithListenConfig sets the listen config used by Listen.
func WithListenConfig(lc net.ListenConfig) Option {
	return func(o *options) {
		o.listenConfig = lc
	}
}
