// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package linerpc

import (
	"bufio"
	"context"
	"errors"
	"io"
)

const (
	// Terminator ends every frame on the wire.
	Terminator byte = '\n'

	// DefaultMaxFrameSize is the largest frame payload, in bytes and not
	// counting the terminator, a reader accepts unless told otherwise.
	DefaultMaxFrameSize = 1 << 20
)

// Reader abstracts the transport mechanics from the JSON RPC protocol.
//
// A Channel reads messages from the reader it was provided on construction,
// and assumes that each call to Read fully transfers a single message,
// or returns an error.
//
// A reader is not safe for concurrent use, it is expected it will be used by
// a single Channel in a safe manner.
type Reader interface {
	// Read gets the next message from the stream.
	Read(ctx context.Context) (msg Message, n int64, err error)
}

// Writer abstracts the transport mechanics from the JSON RPC protocol.
//
// A Channel writes messages using the writer it was provided on construction,
// and assumes that each call to Write fully transfers a single message,
// or returns an error.
//
// A writer is not safe for concurrent use, it is expected it will be used by
// a single Channel in a safe manner.
type Writer interface {
	// Write sends a message to the stream.
	Write(ctx context.Context, msg Message) (n int64, err error)
}

// Framer wraps low level byte readers and writers into JSON-RPC message
// readers and writers.
//
// It is responsible for the framing and encoding of messages into wire form.
type Framer interface {
	// Reader wraps a byte reader into a message reader.
	Reader(r io.Reader) Reader

	// Writer wraps a byte writer into a message writer.
	Writer(w io.Writer) Writer
}

// LineFramer returns a new line Framer.
//
// Each message is sent as its compact JSON encoding followed by a single
// newline. Readers reject a frame whose payload exceeds maxFrameSize bytes
// with ErrProtocol; a non-positive maxFrameSize means DefaultMaxFrameSize.
func LineFramer(maxFrameSize int) Framer {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return lineFramer{max: maxFrameSize}
}

type lineFramer struct {
	max int
}

type lineReader struct {
	in  *bufio.Reader
	max int
}

type lineWriter struct {
	out *bufio.Writer
}

// Reader implements Framer.Reader.
func (f lineFramer) Reader(r io.Reader) Reader {
	return &lineReader{
		in:  bufio.NewReader(r),
		max: f.max,
	}
}

// Writer implements Framer.Writer.
func (lineFramer) Writer(w io.Writer) Writer {
	return &lineWriter{
		out: bufio.NewWriter(w),
	}
}

// Read implements Reader.Read.
func (r *lineReader) Read(ctx context.Context) (msg Message, n int64, err error) {
	select {
	case <-ctx.Done():
		return nil, 0, errorf(ErrConnection, ctx.Err(), "reading frame")
	default:
	}

	data, n, err := r.readFrame()
	if err != nil {
		return nil, n, err
	}

	msg, err = DecodeMessage(data)
	if err != nil {
		return nil, n, err
	}

	return msg, n, nil
}

// readFrame collects bytes up to the next terminator and returns them
// without it. It stops as soon as the payload outgrows the limit, leaving the
// rest of the oversized frame unread.
func (r *lineReader) readFrame() (frame []byte, n int64, err error) {
	for {
		chunk, err := r.in.ReadSlice(Terminator)
		n += int64(len(chunk))

		payload := chunk
		if err == nil {
			payload = chunk[:len(chunk)-1]
		}
		if len(frame)+len(payload) > r.max {
			return nil, n, errorf(ErrProtocol, nil, "frame exceeds %d bytes", r.max)
		}
		frame = append(frame, payload...)

		switch {
		case err == nil:
			return frame, n, nil

		case errors.Is(err, bufio.ErrBufferFull):
			// keep reading the same frame

		default:
			if errors.Is(err, io.EOF) && n > 0 {
				err = io.ErrUnexpectedEOF
			}
			return nil, n, errorf(ErrConnection, err, "reading frame")
		}
	}
}

// Write implements Writer.Write.
func (w *lineWriter) Write(ctx context.Context, msg Message) (n int64, err error) {
	select {
	case <-ctx.Done():
		return 0, errorf(ErrConnection, ctx.Err(), "writing frame")
	default:
	}

	data, err := EncodeMessage(msg)
	if err != nil {
		return 0, err
	}
	data = append(data, Terminator)

	total, err := w.out.Write(data)
	if err == nil {
		err = w.out.Flush()
	}
	if err != nil {
		return int64(total), errorf(ErrConnection, err, "writing frame")
	}

	return int64(total), nil
}
