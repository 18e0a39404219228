/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/badu/exchange/buf"
	"github.com/badu/exchange/errorex"
	"github.com/badu/exchange/exchange"
	"github.com/badu/exchange/h1"
	"github.com/badu/exchange/header"
	"github.com/badu/exchange/sched"
)

// serveH1 runs the keep-alive request loop for an HTTP/1.1 connection,
// processing exchanges strictly sequentially: a response is fully
// serialized before the next pipelined request is read.
func (c *Conn) serveH1(ctx context.Context) {
	br := bufio.NewReaderSize(c.netConn, 4096)
	bw := bufio.NewWriterSize(c.netConn, 4096)

	for {
		if c.cfg.ReadTimeout != 0 {
			c.netConn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}
		req, err := readH1Request(br, c.cfg.MaxHeaderBytes, c.cfg.MaxBodyBytes)
		if err != nil {
			if err != io.EOF && req != nil {
				// The request line parsed but the rest did not; answer
				// through the error-exchange chain before closing.
				if req.Body == nil {
					b := buf.NewSequence()
					b.Close(nil)
					req.Body = b
				}
				c.nextID++
				ex := exchange.New(c.nextID, req, c.handler, c.errHandler)
				hx := h1.New(bw, req, ex.Response)
				c.errEngine.Handle(ex, exchange.BadRequest(err), hx)
				c.drainResponse(ctx, ex, hx)
				bw.Flush()
			}
			return
		}
		if c.cfg.WriteTimeout != 0 {
			c.netConn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		}

		c.nextID++
		ex := exchange.New(c.nextID, req, c.handler, c.errHandler)
		hx := h1.New(bw, req, ex.Response)

		if derr := ex.Dispatch(); derr != nil {
			c.errEngine.Handle(ex, derr, hx)
		}
		c.drainResponse(ctx, ex, hx)

		if hx.CloseAfterReply() {
			bw.Flush()
			return
		}
		if c.cfg.IdleTimeout != 0 {
			c.netConn.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))
		}
	}
}

// exchangeWriter is what drainResponse needs from a protocol exchange:
// the scheduler sink, the terminal reset/close hook, and whether headers
// have reached the wire yet.
type exchangeWriter interface {
	sched.Writer
	errorex.Terminator
	WroteHeaders() bool
}

// drainResponse connects the response body to an empty wire fallback (a
// handler that set no body responds with an empty one) and runs the
// scheduler until the body is fully serialized. A failing body publisher
// or write error escalates through the error-exchange chain: before
// headers are on the wire the response slot is rebuilt and the chain
// gets one shot at a clean error response, after headers the exchange
// can only be terminated.
func (c *Conn) drainResponse(ctx context.Context, ex *exchange.Exchange, w exchangeWriter) {
	err := c.connectAndRun(ctx, ex, w)
	if err == nil || err == sched.ErrCancelled {
		return
	}
	if w.WroteHeaders() {
		ex.PartialResponseSent = true
		c.errEngine.Handle(ex, err, w)
		return
	}
	ex.Response.ResetBody()
	c.errEngine.Handle(ex, err, w)
	if rerr := c.connectAndRun(ctx, ex, w); rerr != nil && rerr != sched.ErrCancelled {
		c.log.Error("error response write failed", zap.Error(rerr))
		w.Terminate()
	}
}

func (c *Conn) connectAndRun(ctx context.Context, ex *exchange.Exchange, w sched.Writer) error {
	empty := buf.NewSequence()
	empty.Close(nil)
	if err := ex.Response.Body.Connect(empty); err != nil {
		return err
	}
	return sched.New(ex.Response.Body.Sequence(), w, ex).Run(ctx)
}

// readH1Request parses one request line and header block off br into
// this module's header.Store and exchange.Request. When the request line
// itself parsed but a later stage failed, the partial request is
// returned alongside the error so the caller can answer 400 on it. A
// positive maxHeaderBytes bounds the header block, a positive
// maxBodyBytes the body payload.
func readH1Request(br *bufio.Reader, maxHeaderBytes, maxBodyBytes int64) (*exchange.Request, error) {
	tp := textproto.NewReader(br)
	line, err := tp.ReadLine()
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("server: malformed request line %q", line)
	}
	method, path := parts[0], parts[1]
	req := &exchange.Request{
		Method:  method,
		Path:    path,
		RawPath: path,
		Version: exchange.HTTP1,
		Headers: header.New(),
	}

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		return req, err
	}
	var headerBytes int64
	for k, vs := range mimeHeader {
		for _, v := range vs {
			headerBytes += int64(len(k) + len(v) + 4) // name: value\r\n
			req.Headers.Add(k, v)
		}
	}
	if maxHeaderBytes > 0 && headerBytes > maxHeaderBytes {
		return req, fmt.Errorf("server: header block of %d bytes exceeds limit %d", headerBytes, maxHeaderBytes)
	}

	body, err := readH1Body(br, req.Headers, maxBodyBytes)
	if err != nil {
		return req, err
	}
	req.Body = body
	return req, nil
}

// readH1Body decodes the request body per h's framing: chunked transfer
// encoding, a known content-length, or no body at all.
//
// Only the body payload itself is bounded by maxBodyBytes (via
// buf.LimitReader): control lines (chunk-size lines, trailer headers)
// are read straight off br/tp so the shared bufio.Reader's position
// stays correct for the next pipelined request. A zero or negative
// maxBodyBytes leaves the body unbounded.
func readH1Body(br *bufio.Reader, h *header.Store, maxBodyBytes int64) (*buf.Sequence, error) {
	var bodyReader io.Reader = br
	if maxBodyBytes > 0 {
		bodyReader = buf.NewLimitReader(br, maxBodyBytes)
	}

	seq := buf.NewSequence()
	if h.IsChunked() {
		tp := textproto.NewReader(br)
		for {
			sizeLine, err := tp.ReadLine()
			if err != nil {
				return nil, err
			}
			if i := strings.IndexByte(sizeLine, ';'); i >= 0 {
				sizeLine = sizeLine[:i]
			}
			n, err := strconv.ParseInt(strings.TrimSpace(sizeLine), 16, 64)
			if err != nil {
				return nil, fmt.Errorf("server: malformed chunk size: %w", err)
			}
			if n == 0 {
				for {
					line, err := tp.ReadLine()
					if err != nil {
						return nil, err
					}
					if line == "" {
						break
					}
				}
				break
			}
			data := make([]byte, n)
			if _, err := io.ReadFull(bodyReader, data); err != nil {
				return nil, err
			}
			if _, err := br.Discard(2); err != nil {
				return nil, err
			}
			seq.Push(buf.Wrap(data))
		}
		seq.Close(nil)
		return seq, nil
	}
	if n, ok := h.ContentLength(); ok && n > 0 {
		data := make([]byte, n)
		if _, err := io.ReadFull(bodyReader, data); err != nil {
			return nil, err
		}
		seq.Push(buf.Wrap(data))
	}
	seq.Close(nil)
	return seq, nil
}
