// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package linerpc

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Client issues calls over a single connection.
//
// Only one call is in flight at a time: a call holds the client for its full
// round trip, and concurrent callers wait their turn.
type Client struct {
	channel *Channel
	logger  *zap.Logger
	seq     *atomic.Int64
	mu      sync.Mutex
}

// NewClient returns a Client that speaks over conn. The client owns conn and
// closes it on Close.
func NewClient(conn net.Conn, opts ...Option) *Client {
	o := newOptions(opts...)
	return &Client{
		channel: newChannel(conn, o),
		logger:  o.logger.With(zap.Stringer("peer", conn.RemoteAddr())),
		seq:     atomic.NewInt64(0),
	}
}

// Call sends a request for method and waits for its response.
//
// The request id is taken from a per-client counter starting at zero. The
// reply must be a version 2.0 Response with the same id, otherwise Call fails
// with ErrProtocol. An error response is returned as a *Error. On success the
// result is returned, nil when the result is null.
func (c *Client) Call(ctx context.Context, method string, params *Params) (RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := NewNumberID(c.seq.Inc() - 1)
	req := NewRequest(method, params, &id)

	start := time.Now()
	c.logger.Debug(Send,
		zap.Stringer("id", id),
		zap.String("method", method),
		zap.Int("params", params.Len()),
	)

	if err := c.channel.Send(ctx, req); err != nil {
		return nil, err
	}

	msg, err := c.channel.Receive(ctx)
	if err != nil {
		return nil, err
	}

	if v := msg.Version(); v != Version {
		return nil, errorf(ErrProtocol, nil, "received message for unsupported version %q", v)
	}

	resp, ok := msg.(*Response)
	if !ok {
		return nil, errorf(ErrProtocol, nil, "received unexpected request %q", msg.(*Request).Method())
	}

	if !resp.ID().Equal(id) {
		return nil, errorf(ErrProtocol, nil, "received unexpected response id %q, want %q", resp.ID(), id)
	}

	c.logger.Debug(Receive,
		zap.Stringer("id", id),
		zap.String("method", method),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("error", resp.Err() != nil),
	)

	// is it an error response?
	if rerr := resp.Err(); rerr != nil {
		return nil, rerr
	}

	if isNull(resp.Result()) {
		return nil, nil
	}

	return resp.Result(), nil
}

// Notify sends a notification for method. No response is expected.
//
// Servers that do not keep connections alive drop the connection on a
// notification.
func (c *Client) Notify(ctx context.Context, method string, params *Params) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug(Send,
		zap.String("method", method),
		zap.Int("params", params.Len()),
	)

	return c.channel.Send(ctx, NewNotification(method, params))
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.channel.Close()
}
