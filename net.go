// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package linerpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
)

// This file contains implementations of the transport primitives that use the standard network
// package.

// Dial connects to address over TCP and returns a Client for the connection.
//
// It honours WithDialer; the default dialer gives up after five seconds.
func Dial(ctx context.Context, address string, opts ...Option) (*Client, error) {
	o := newOptions(opts...)

	conn, err := o.dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errorf(ErrConnection, err, "failed to dial %s", address)
	}

	return NewClient(conn, opts...), nil
}

// Listen announces on the local network address and returns a Server for it.
// The server does not accept connections until Serve is called.
//
// It honours WithListenConfig. A unix socket file is removed when the server
// is closed.
func Listen(ctx context.Context, network, address string, handlers map[string]Handler, opts ...Option) (*Server, error) {
	o := newOptions(opts...)

	ln, err := o.listenConfig.Listen(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	return NewServer(&netListener{Listener: ln}, handlers, opts...), nil
}

// netListener removes the socket file of a unix listener on Close.
type netListener struct {
	net.Listener
}

// Close will cause the listener to stop listening. It will not close any connections that have
// already been accepted.
func (l *netListener) Close() error {
	addr := l.Addr()

	err := l.Listener.Close()
	if addr.Network() == "unix" {
		rerr := os.Remove(addr.String())
		if rerr != nil && !errors.Is(rerr, os.ErrNotExist) && err == nil {
			err = rerr
		}
	}

	return err
}

// pipeAddr is the address of every PipeListener.
type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }

// PipeListener is a net.Listener built on top of net.Pipe.
//
// It is only possible to connect to it using its Dial method, each call to
// which generates a new pipe the other side of which is returned from Accept.
type PipeListener struct {
	done   chan struct{}
	dialed chan net.Conn
	once   sync.Once
}

// make sure PipeListener implements the net.Listener interface.
var _ net.Listener = (*PipeListener)(nil)

// NewPipeListener returns a new PipeListener.
func NewPipeListener() *PipeListener {
	return &PipeListener{
		done:   make(chan struct{}),
		dialed: make(chan net.Conn),
	}
}

// Accept blocks waiting for an incoming connection to the listener.
//
// Accept implements net.Listener.Accept.
func (l *PipeListener) Accept() (net.Conn, error) {
	// block until we have a dialer, or are closed
	select {
	case conn := <-l.dialed:
		return conn, nil

	case <-l.done:
		return nil, net.ErrClosed
	}
}

// Close will cause the listener to stop listening. It will not close any connections that have
// already been accepted.
//
// Close implements net.Listener.Close.
func (l *PipeListener) Close() error {
	// unblock any accept calls that are pending
	l.once.Do(func() { close(l.done) })

	return nil
}

// Addr implements net.Listener.Addr.
func (l *PipeListener) Addr() net.Addr {
	return pipeAddr{}
}

// Dial returns the client side of a new pipe, once the server side has been
// accepted.
func (l *PipeListener) Dial(ctx context.Context) (net.Conn, error) {
	client, server := net.Pipe()

	select {
	case l.dialed <- server:
		return client, nil

	case <-l.done:
		client.Close()
		server.Close()
		return nil, errorf(ErrConnection, net.ErrClosed, "dialing pipe")

	case <-ctx.Done():
		client.Close()
		server.Close()
		return nil, errorf(ErrConnection, ctx.Err(), "dialing pipe")
	}
}
