// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package fake provides a scripted peer for testing the client and server
// against raw wire bytes.
package fake

import (
	"bufio"
	"errors"
	"net"
	"sync"
)

// Script computes the raw reply to one frame. The frame is passed without
// its terminating newline. A nil reply closes the connection; otherwise the
// reply is written as is, so it must carry its own newline.
type Script func(frame []byte) (reply []byte)

// Peer is a TCP server on the loopback interface that answers every frame it
// reads with the output of its Script.
type Peer struct {
	ln     net.Listener
	script Script

	mu       sync.Mutex
	received [][]byte
	conns    map[net.Conn]struct{}
	closed   bool

	wg sync.WaitGroup
}

// NewPeer starts a Peer on an ephemeral loopback port.
func NewPeer(script Script) (*Peer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	p := &Peer{
		ln:     ln,
		script: script,
		conns:  make(map[net.Conn]struct{}),
	}
	p.wg.Add(1)
	go p.run()

	return p, nil
}

// Reply returns a Script that answers every frame with reply followed by a
// newline.
func Reply(reply string) Script {
	return func([]byte) []byte {
		return []byte(reply + "\n")
	}
}

// Addr returns the address to dial.
func (p *Peer) Addr() string {
	return p.ln.Addr().String()
}

// Received returns a copy of the frames read so far, in order.
func (p *Peer) Received() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	frames := make([]string, len(p.received))
	for i, f := range p.received {
		frames[i] = string(f)
	}

	return frames
}

// Close stops the peer and closes every open connection.
func (p *Peer) Close() error {
	err := p.ln.Close()

	p.mu.Lock()
	p.closed = true
	for conn := range p.conns {
		conn.Close()
	}
	p.mu.Unlock()

	p.wg.Wait()

	return err
}

func (p *Peer) run() {
	defer p.wg.Done()

	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}

		// a connection accepted while closing is never served
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			conn.Close()
			return
		}
		p.conns[conn] = struct{}{}
		p.wg.Add(1)
		p.mu.Unlock()

		go p.serve(conn)
	}
}

func (p *Peer) serve(conn net.Conn) {
	defer func() {
		p.mu.Lock()
		delete(p.conns, conn)
		p.mu.Unlock()

		conn.Close()
		p.wg.Done()
	}()

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && len(line) > 0 {
				p.record(line)
			}
			return
		}
		frame := line[:len(line)-1]
		p.record(frame)

		reply := p.script(frame)
		if reply == nil {
			return
		}
		if _, err := conn.Write(reply); err != nil {
			return
		}
	}
}

func (p *Peer) record(frame []byte) {
	p.mu.Lock()
	p.received = append(p.received, append([]byte(nil), frame...))
	p.mu.Unlock()
}
