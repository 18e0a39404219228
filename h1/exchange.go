/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package h1 implements the HTTP/1.1 exchange's response side:
// serialization (empty/single/chunked), trailers, and the
// connection-close decision. Request parsing, keep-alive dispatch, and
// failure escalation to package errorex live in package server.
package h1

import (
	"bufio"
	"fmt"
	"strconv"

	"github.com/badu/exchange/buf"
	"github.com/badu/exchange/exchange"
)

var crlf = []byte("\r\n")

// Exchange serializes one HTTP/1.1 response onto a shared connection
// writer. Exchanges on one connection are processed strictly
// sequentially; responses are FIFO in request order.
type Exchange struct {
	w           *bufio.Writer
	req         *exchange.Request
	resp        *exchange.Response
	wroteHeader bool
	chunking    bool
	closeAfter  bool

	// pending holds the first body chunk until a second chunk or Flush
	// decides between content-length and chunked framing.
	pending *buf.Chunk
}

// New returns an Exchange writing onto w for the given request/response
// pair.
func New(w *bufio.Writer, req *exchange.Request, resp *exchange.Response) *Exchange {
	return &Exchange{w: w, req: req, resp: resp}
}

// Credit implements sched.Writer: HTTP/1.1 chunked transfer requests one
// chunk at a time.
func (e *Exchange) Credit() int { return 1 }

// WriteChunk implements sched.Writer, writing headers lazily. Whether
// the body is a single chunk (serialized with content-length) or a
// multi-chunk stream (serialized chunked) is only knowable once a second
// chunk arrives or Flush observes EOF, so the first chunk is held back
// until one of those happens.
func (e *Exchange) WriteChunk(chunks []*buf.Chunk) error {
	for _, c := range chunks {
		if !e.wroteHeader && e.pending == nil {
			e.pending = c.Retain()
			continue
		}
		if e.pending != nil {
			// A second chunk proves this is a stream.
			if err := e.writeHeader(nil, false); err != nil {
				return err
			}
			p := e.pending
			e.pending = nil
			err := e.writeOne(p.Bytes())
			p.Release()
			if err != nil {
				return err
			}
		}
		if err := e.writeOne(c.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exchange) writeOne(p []byte) error {
	if !e.wroteHeader {
		if err := e.writeHeader(p, false); err != nil {
			return err
		}
	}
	if e.req.Method == "HEAD" {
		return nil
	}
	if e.chunking {
		if _, err := fmt.Fprintf(e.w, "%x\r\n", len(p)); err != nil {
			return err
		}
	}
	if _, err := e.w.Write(p); err != nil {
		return err
	}
	if e.chunking {
		if _, err := e.w.Write(crlf); err != nil {
			return err
		}
	}
	return nil
}

// Flush implements sched.Writer: terminates chunked framing with the
// trailer block, or serializes the whole response when the body turned
// out to be empty or a single chunk. A single chunk with trailers still
// goes out chunked, the only framing that can carry trailers.
func (e *Exchange) Flush(streamErr error) error {
	if !e.wroteHeader {
		if e.pending != nil && e.resp.Trailers == nil {
			p := e.pending
			e.pending = nil
			err := e.WriteSingleChunk(p.Bytes())
			p.Release()
			return err
		}
		if err := e.writeHeader(nil, e.pending == nil && e.resp.Trailers == nil); err != nil {
			return err
		}
		if e.pending != nil {
			p := e.pending
			e.pending = nil
			err := e.writeOne(p.Bytes())
			p.Release()
			if err != nil {
				return err
			}
		}
	}
	if e.chunking {
		if _, err := e.w.WriteString("0\r\n"); err != nil {
			return err
		}
		if e.resp.Trailers != nil {
			for _, name := range e.resp.Trailers.Names() {
				for _, v := range e.resp.Trailers.Values(name) {
					if _, err := fmt.Fprintf(e.w, "%s: %s\r\n", name, v); err != nil {
						return err
					}
				}
			}
		}
		if _, err := e.w.Write(crlf); err != nil {
			return err
		}
	}
	return e.w.Flush()
}

// writeHeader applies the three body-framing rules before emitting the
// status line and header block:
//   - empty body (isFinal, no bytes): content-length: 0 if absent
//   - single chunk known upfront (isFinal with bytes): content-length
//     set to that chunk's size if absent
//   - multi-chunk / unknown length: transfer-encoding: chunked
func (e *Exchange) writeHeader(p []byte, isFinal bool) error {
	e.wroteHeader = true
	h := e.resp.Headers

	_, hasCL := h.ContentLength()
	hasTE := h.Has("Transfer-Encoding")

	switch {
	case isFinal && len(p) == 0 && !hasCL:
		// Empty body path.
		_ = h.SetContentLength(0)
	case isFinal && len(p) > 0 && !hasCL && !hasTE:
		// Single chunk known upfront: this call's p is the one and only
		// body write finalized in the same breath as headers.
		_ = h.SetContentLength(int64(len(p)))
	case !isFinal && !hasCL && !hasTE:
		// Multi-chunk / unknown length.
		_ = h.Set("Transfer-Encoding", "chunked")
		e.chunking = true
	}
	if h.IsChunked() {
		e.chunking = true
	}

	if h.ConnectionClose() {
		e.closeAfter = true
	}
	if e.req.Headers != nil && e.req.Headers.ConnectionClose() {
		e.closeAfter = true
	}

	h.Freeze()

	status := e.resp.Status()
	if _, err := fmt.Fprintf(e.w, "HTTP/1.1 %03d %s\r\n", status, statusText(status)); err != nil {
		return err
	}
	for _, name := range h.Names() {
		for _, v := range h.Values(name) {
			if _, err := fmt.Fprintf(e.w, "%s: %s\r\n", name, v); err != nil {
				return err
			}
		}
	}
	_, err := e.w.Write(crlf)
	return err
}

// WroteHeaders reports whether the status line and header block have
// been serialized.
func (e *Exchange) WroteHeaders() bool { return e.wroteHeader }

// CloseAfterReply reports whether the connection must close once this
// exchange finishes, honoring "connection: close".
func (e *Exchange) CloseAfterReply() bool { return e.closeAfter }

// Terminate implements errorex.Terminator: HTTP/1.1 has no stream-level
// reset, so terminating an exchange whose fallback chain is exhausted
// means the connection closes once this exchange's bytes (if any) are
// flushed.
func (e *Exchange) Terminate() error {
	e.closeAfter = true
	return nil
}

// WriteEmpty serializes a response with no body at all: status line,
// headers with content-length: 0 injected if absent, and the terminal
// CRLF. No further writes follow.
func (e *Exchange) WriteEmpty() error {
	if err := e.writeHeader(nil, true); err != nil {
		return err
	}
	return e.w.Flush()
}

// WriteSingleChunk serializes a response whose entire body is known
// upfront: status line + headers (injecting content-length if absent) +
// CRLF + the chunk.
func (e *Exchange) WriteSingleChunk(p []byte) error {
	if err := e.writeHeader(p, true); err != nil {
		return err
	}
	if e.req.Method != "HEAD" {
		if _, err := e.w.Write(p); err != nil {
			return err
		}
	}
	return e.w.Flush()
}

func statusText(code int) string {
	if t, ok := statusTexts[code]; ok {
		return t
	}
	return strconv.Itoa(code)
}

var statusTexts = map[int]string{
	200: "OK",
	204: "No Content",
	206: "Partial Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	409: "Conflict",
	415: "Unsupported Media Type",
	500: "Internal Server Error",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}
