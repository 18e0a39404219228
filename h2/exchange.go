/*
 * Copyright 2014 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package h2 implements the HTTP/2 exchange: a single stream's
// pseudo-headers, DATA frames, trailing HEADERS, and flush, built on
// golang.org/x/net/http2's Framer and hpack encoder.
package h2

import (
	"bytes"
	"fmt"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/hpack"

	"github.com/badu/exchange/buf"
	"github.com/badu/exchange/exchange"
)

// DefaultMaxFrameSize is used when the peer never sent
// SETTINGS_MAX_FRAME_SIZE, matching RFC 7540 §6.5.2's default.
const DefaultMaxFrameSize = 16384

// Exchange serializes one HTTP/2 response onto a single stream,
// honoring the connection-shared Framer and flow-control credit.
type Exchange struct {
	framer       *http2.Framer
	enc          *hpack.Encoder
	encBuf       *bytes.Buffer
	streamID     uint32
	resp         *exchange.Response
	maxFrameSize uint32
	credit       int // current peer flow-control window for this stream

	wroteHeaders bool
	lastData     bool       // true once at least one body chunk has been accepted
	pending      *buf.Chunk // most recent chunk, held back until proven non-terminal
}

// New returns an Exchange for streamID, writing frames through framer
// and using enc (seeded with the connection's shared HPACK encoder
// state, since HPACK's dynamic table is per-connection).
func New(framer *http2.Framer, enc *hpack.Encoder, encBuf *bytes.Buffer, streamID uint32, resp *exchange.Response, initialCredit uint32) *Exchange {
	return &Exchange{
		framer:       framer,
		enc:          enc,
		encBuf:       encBuf,
		streamID:     streamID,
		resp:         resp,
		maxFrameSize: DefaultMaxFrameSize,
		credit:       int(initialCredit),
	}
}

// SetMaxFrameSize configures the peer's advertised
// SETTINGS_MAX_FRAME_SIZE, bounding how large a single DATA frame may be.
func (e *Exchange) SetMaxFrameSize(n uint32) {
	if n > 0 {
		e.maxFrameSize = n
	}
}

// AddCredit increments the stream's flow-control window on a
// WINDOW_UPDATE frame from the peer.
func (e *Exchange) AddCredit(n int) { e.credit += n }

// Credit implements sched.Writer: DATA writes are bounded by the peer's
// flow-control window.
func (e *Exchange) Credit() int {
	if e.credit < 0 {
		return 0
	}
	return e.credit
}

// writeHeaders emits the HEADERS frame carrying ":status" plus all
// regular response headers. END_STREAM is set only when the body is
// empty and no trailers are set.
func (e *Exchange) writeHeaders(endStream bool) error {
	e.wroteHeaders = true
	h := e.resp.Headers
	h.Freeze()

	e.encBuf.Reset()
	if err := e.enc.WriteField(hpack.HeaderField{Name: ":status", Value: fmt.Sprintf("%d", e.resp.Status())}); err != nil {
		return err
	}
	for _, name := range h.Names() {
		for _, v := range h.Values(name) {
			if err := e.enc.WriteField(hpack.HeaderField{Name: asciiLower(name), Value: v}); err != nil {
				return err
			}
		}
	}
	block := e.encBuf.Bytes()
	// Split the block across maxFrameSize-sized HEADERS/CONTINUATION
	// frames.
	first := block
	endHeaders := true
	if uint32(len(block)) > e.maxFrameSize {
		first = block[:e.maxFrameSize]
		endHeaders = false
	}
	if err := e.framer.WriteHeaders(http2.HeadersFrameParam{
		StreamID:      e.streamID,
		BlockFragment: first,
		EndStream:     endStream,
		EndHeaders:    endHeaders,
	}); err != nil {
		return err
	}
	rest := block[len(first):]
	for len(rest) > 0 {
		chunk := rest
		last := true
		if uint32(len(chunk)) > e.maxFrameSize {
			chunk = rest[:e.maxFrameSize]
			last = false
		}
		if err := e.framer.WriteContinuation(e.streamID, last, chunk); err != nil {
			return err
		}
		rest = rest[len(chunk):]
	}
	return nil
}

// WriteChunk implements sched.Writer. The first call emits HEADERS (if
// not already emitted); every chunk is then split into
// SETTINGS_MAX_FRAME_SIZE-sized DATA frames, preserving handler-intended
// boundaries by never coalescing two distinct publisher emissions into
// one frame.
//
// A chunk is not known to be the stream's last one until the body
// Sequence reaches EOF, which only Flush observes. So the most recently
// written chunk is held back as "pending" and flushed without
// END_STREAM as soon as a further chunk arrives; Flush then writes
// whatever is pending with END_STREAM set. A single-chunk body thus
// serializes as exactly one HEADERS and one DATA frame, with no trailing
// empty DATA frame.
func (e *Exchange) WriteChunk(chunks []*buf.Chunk) error {
	if !e.wroteHeaders {
		if err := e.writeHeaders(false); err != nil {
			return err
		}
	}
	for _, c := range chunks {
		if e.pending != nil {
			if err := e.writeData(e.pending.Bytes(), false); err != nil {
				return err
			}
			e.pending.Release()
		}
		e.pending = c.Retain()
		e.lastData = true
	}
	return nil
}

func (e *Exchange) writeData(p []byte, endStream bool) error {
	if len(p) == 0 {
		return e.framer.WriteData(e.streamID, endStream, p)
	}
	for len(p) > 0 {
		n := int(e.maxFrameSize)
		if n > len(p) {
			n = len(p)
		}
		last := n == len(p)
		if err := e.framer.WriteData(e.streamID, last && endStream, p[:n]); err != nil {
			return err
		}
		e.credit -= n
		p = p[n:]
	}
	return nil
}

// Flush implements sched.Writer: emits the terminal framing. Trailers go
// out as a final HEADERS frame with END_STREAM when present; otherwise
// END_STREAM rides the last DATA frame, or an empty DATA frame when no
// trailing DATA was available. Exactly one frame ends the stream.
func (e *Exchange) Flush(streamErr error) error {
	hasTrailers := e.resp.Trailers != nil
	if !e.wroteHeaders {
		// Empty body: single HEADERS frame, END_STREAM unless trailers
		// still follow.
		if err := e.writeHeaders(!hasTrailers); err != nil {
			return err
		}
		if hasTrailers {
			return e.writeTrailers()
		}
		return nil
	}
	if e.pending != nil {
		p := e.pending
		e.pending = nil
		err := e.writeData(p.Bytes(), !hasTrailers)
		p.Release()
		if err != nil {
			return err
		}
	} else if !e.lastData && !hasTrailers {
		// No chunk ever materialized after headers went out; an empty
		// DATA frame still has to end the stream.
		if err := e.writeData(nil, true); err != nil {
			return err
		}
	}
	if hasTrailers {
		return e.writeTrailers()
	}
	return nil
}

func (e *Exchange) writeTrailers() error {
	e.encBuf.Reset()
	for _, name := range e.resp.Trailers.Names() {
		for _, v := range e.resp.Trailers.Values(name) {
			if err := e.enc.WriteField(hpack.HeaderField{Name: asciiLower(name), Value: v}); err != nil {
				return err
			}
		}
	}
	return e.framer.WriteHeaders(http2.HeadersFrameParam{
		StreamID:      e.streamID,
		BlockFragment: e.encBuf.Bytes(),
		EndStream:     true,
		EndHeaders:    true,
	})
}

// WroteHeaders reports whether the HEADERS frame has been emitted.
func (e *Exchange) WroteHeaders() bool { return e.wroteHeaders }

// ResetStream emits RST_STREAM with INTERNAL_ERROR, used by errorex on
// post-header failures.
func (e *Exchange) ResetStream() error {
	return e.framer.WriteRSTStream(e.streamID, http2.ErrCodeInternal)
}

// Terminate implements errorex.Terminator.
func (e *Exchange) Terminate() error { return e.ResetStream() }

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
