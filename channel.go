// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package linerpc

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"time"
)

// aLongTimeAgo is a deadline in the past, used to wake up blocked I/O.
var aLongTimeAgo = time.Unix(1, 0)

// Channel sends and receives framed messages over a connection.
//
// At most one read and one write are outstanding at a time: concurrent
// Receive calls, and concurrent Send calls, are serialized.
type Channel struct {
	conn         net.Conn
	reader       Reader
	writer       Writer
	readTimeout  time.Duration
	writeTimeout time.Duration

	readMu  sync.Mutex
	writeMu sync.Mutex
}

// NewChannel returns a Channel framing messages over conn.
//
// It honours WithReadTimeout, WithWriteTimeout and WithMaxFrameSize.
func NewChannel(conn net.Conn, opts ...Option) *Channel {
	return newChannel(conn, newOptions(opts...))
}

func newChannel(conn net.Conn, o *options) *Channel {
	framer := LineFramer(o.maxFrameSize)
	return &Channel{
		conn:         conn,
		reader:       framer.Reader(conn),
		writer:       framer.Writer(conn),
		readTimeout:  o.readTimeout,
		writeTimeout: o.writeTimeout,
	}
}

// Receive blocks until one frame arrives and returns the decoded message.
//
// Cancelling ctx, or reaching its deadline or the read timeout, aborts the
// read with ErrConnection. After an ErrProtocol or ErrConnection failure the
// stream position is undefined and the channel should be closed.
func (c *Channel) Receive(ctx context.Context) (Message, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	stop, err := armDeadline(ctx, c.conn.SetReadDeadline, c.readTimeout)
	if err != nil {
		return nil, err
	}
	defer stop()

	msg, _, err := c.reader.Read(ctx)
	if err != nil {
		return nil, interrupted(ctx, err, "receiving frame")
	}

	return msg, nil
}

// Send writes msg as one frame and flushes it.
func (c *Channel) Send(ctx context.Context, msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	stop, err := armDeadline(ctx, c.conn.SetWriteDeadline, c.writeTimeout)
	if err != nil {
		return err
	}
	defer stop()

	if _, err := c.writer.Write(ctx, msg); err != nil {
		return interrupted(ctx, err, "sending frame")
	}

	return nil
}

// Close closes the underlying connection.
func (c *Channel) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the address of the peer.
func (c *Channel) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// armDeadline sets the sooner of the context deadline and now+timeout on the
// connection, and arranges for a cancelled context to unblock the I/O.
// The returned function must be called once the I/O is done.
func armDeadline(ctx context.Context, set func(time.Time) error, timeout time.Duration) (stop func(), err error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := set(deadline); err != nil {
		return nil, errorf(ErrConnection, err, "setting deadline")
	}

	fired := make(chan struct{})
	stopAfter := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = set(aLongTimeAgo)
	})

	// once stop returns the deadline may be armed again safely
	return func() {
		if !stopAfter() {
			<-fired
		}
	}, nil
}

// interrupted reports a failure caused by the context ending as the context
// error rather than as the deadline we used to wake the I/O up.
func interrupted(ctx context.Context, err error, what string) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return errorf(ErrConnection, ctxErr, "%s", what)
	}
	return err
}
