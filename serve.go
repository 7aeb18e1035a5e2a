// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package linerpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server accepts connections and dispatches the requests read from them to
// a fixed set of handlers.
//
// Each connection is served by its own goroutine through the cycle
// receive, validate, dispatch, respond. By default a connection is closed
// after one cycle; WithKeepAlive repeats the cycle until the peer hangs up.
//
// Malformed input never gets a response: a frame with the wrong version, a
// Response where a Request was expected, or (without keep alive) a
// notification is logged and the connection is dropped. A well formed call
// to an unknown method is answered with ErrMethodNotFound.
type Server struct {
	listener  net.Listener
	handlers  map[string]Handler
	logger    *zap.Logger
	telemetry *telemetry
	keepAlive bool
	limiter   *rate.Limiter
	opts      *options

	closed *atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewServer returns a Server that will accept connections from ln.
//
// The handlers are copied; the server never modifies its copy, so it is read
// by every connection without locking.
func NewServer(ln net.Listener, handlers map[string]Handler, opts ...Option) *Server {
	o := newOptions(opts...)
	return &Server{
		listener:  ln,
		handlers:  maps.Clone(handlers),
		logger:    o.logger,
		telemetry: newTelemetry(o.tracerProvider, o.meterProvider),
		keepAlive: o.keepAlive,
		limiter:   o.acceptLimiter,
		opts:      o,
		closed:    atomic.NewBool(false),
		done:      make(chan struct{}),
		conns:     make(map[net.Conn]struct{}),
	}
}

// Addr returns the listener's network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until the server is closed, ctx is done or the
// listener fails. It returns nil after Close, the context error when ctx
// ends, and the accept error otherwise. Active connections are closed and
// waited for before Serve returns.
func (s *Server) Serve(ctx context.Context) error {
	// Close cancels the connections and a pending accept limiter wait
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	stop := context.AfterFunc(ctx, func() {
		s.listener.Close()
	})
	defer stop()

	defer func() {
		_ = s.closeConns()
		s.wg.Wait()
	}()

	s.logger.Info("serving", zap.Stringer("addr", s.listener.Addr()))

	for {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return s.serveErr(ctx, err)
			}
		}

		// never close the accepted connection from here, serveConn owns it
		conn, err := s.listener.Accept()
		if err != nil {
			return s.serveErr(ctx, err)
		}

		if !s.track(conn) {
			conn.Close()
			return nil
		}

		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveErr(ctx context.Context, err error) error {
	switch {
	case s.closed.Load():
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("failed to accept: %w", err)
	}
}

// Close stops accepting connections, closes the active ones and waits for
// their goroutines to finish.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)

	err := s.listener.Close()
	if IsClosingError(err) {
		err = nil
	}
	err = multierr.Append(err, s.closeConns())
	s.wg.Wait()

	return err
}

// track registers an accepted connection, unless the server is closing.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)

	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()

	if err := conn.Close(); err != nil && !IsClosingError(err) {
		s.logger.Debug("failed to close connection", zap.Error(err))
	}
	s.wg.Done()
}

func (s *Server) closeConns() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.conns {
		if cerr := conn.Close(); cerr != nil && !IsClosingError(cerr) {
			err = multierr.Append(err, cerr)
		}
	}

	return err
}

// serveConn drives one connection to completion.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer s.untrack(conn)

	logger := s.logger.With(zap.Stringer("peer", conn.RemoteAddr()))
	logger.Info("accepted connection")

	ch := newChannel(conn, s.opts)
	for s.serveFrame(ctx, ch, logger) && s.keepAlive {
	}
}

// serveFrame runs one receive, validate, dispatch, respond cycle and reports
// whether the connection is still usable.
func (s *Server) serveFrame(ctx context.Context, ch *Channel, logger *zap.Logger) bool {
	msg, err := ch.Receive(ctx)
	if err != nil {
		if IsClosingError(err) {
			logger.Debug("connection closed by peer")
		} else {
			logger.Warn("failed to receive frame", zap.Error(err))
		}
		return false
	}

	if v := msg.Version(); v != Version {
		logger.Warn("unexpected version", zap.String("version", v))
		return false
	}

	req, ok := msg.(*Request)
	if !ok {
		logger.Warn("unexpected message type", zap.Stringer("id", msg.(*Response).ID()))
		return false
	}

	if req.IsNotify() {
		if !s.keepAlive {
			logger.Warn("unexpected notification", zap.String("method", req.Method()))
			return false
		}
		// a notification is dispatched for its side effects only
		s.dispatch(ctx, req, logger)
		return true
	}

	resp := s.dispatch(ctx, req, logger)
	if err := ch.Send(ctx, resp); err != nil {
		logger.Warn("failed to send response", zap.Stringer("id", resp.ID()), zap.Error(err))
		return false
	}

	return true
}

// dispatch looks up the handler for req and builds the response.
func (s *Server) dispatch(ctx context.Context, req *Request, logger *zap.Logger) *Response {
	var id ID
	if req.ID() != nil {
		id = *req.ID()
	}
	logger = logger.With(zap.String("method", req.Method()), zap.Stringer("id", id))
	logger.Debug(Receive, zap.Int("params", req.Params().Len()))

	handler, ok := s.handlers[req.Method()]
	if !ok {
		logger.Warn("method not found")
		handler = MethodNotFoundHandler
	}

	ctx, end := s.telemetry.start(ctx, req.Method())
	result, rerr := invoke(ctx, handler, req.Params())
	end(rerr)

	if rerr != nil {
		logger.Debug(Send, zap.Error(rerr))
		return NewErrorResponse(id, rerr)
	}

	logger.Debug(Send, zap.Int("result", len(result)))
	return NewResponse(id, result)
}

// IsClosingError reports if the error occurs normally during the process of
// closing a network connection.
//
// It uses imperfect heuristics that err on the side of false negatives,
// and should not be used for anything critical.
func IsClosingError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}
