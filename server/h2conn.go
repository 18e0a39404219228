/*
 * Copyright (c) 2014 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package server

import (
	"bytes"
	"context"
	"io"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/hpack"

	"github.com/badu/exchange/buf"
	"github.com/badu/exchange/exchange"
	"github.com/badu/exchange/h2"
	"github.com/badu/exchange/header"
)

type h2Stream struct {
	req      *exchange.Request
	body     *buf.Sequence
	bodyRead int64

	// endStream records END_STREAM from the stream's HEADERS frame so a
	// CONTINUATION-terminated header block still knows whether a body
	// follows.
	endStream bool
}

// serveH2 runs an HTTP/2 connection's frame loop: client preface, initial
// SETTINGS exchange, then a dispatch switch over frame types.
//
// Streams are processed to completion one at a time: once a stream's
// request is fully received, the handler runs and the response is
// written before the next frame is read. Concurrent stream interleaving
// needs an event-loop wakeup source this driver doesn't build; per-
// stream write ordering is owned entirely by h2.Exchange and holds
// regardless of how streams are sequenced here.
func (c *Conn) serveH2(ctx context.Context) {
	preface := make([]byte, len(http2.ClientPreface))
	if _, err := io.ReadFull(c.netConn, preface); err != nil || string(preface) != http2.ClientPreface {
		c.log.Warn("missing or malformed http/2 client preface")
		return
	}

	framer := http2.NewFramer(c.netConn, c.netConn)

	f, err := framer.ReadFrame()
	if err != nil {
		return
	}
	sf, ok := f.(*http2.SettingsFrame)
	if !ok {
		return
	}
	peerMaxFrame := uint32(h2.DefaultMaxFrameSize)
	_ = sf.ForeachSetting(func(s http2.Setting) error {
		if s.ID == http2.SettingMaxFrameSize {
			peerMaxFrame = s.Val
		}
		return nil
	})
	if err := framer.WriteSettings(); err != nil {
		return
	}
	if err := framer.WriteSettingsAck(); err != nil {
		return
	}

	var encBuf bytes.Buffer
	enc := hpack.NewEncoder(&encBuf)

	streams := make(map[uint32]*h2Stream)
	var curPseudo header.Pseudo
	var curStreamID uint32

	dec := hpack.NewDecoder(4096, func(f hpack.HeaderField) {
		st := streams[curStreamID]
		if st == nil {
			return
		}
		switch f.Name {
		case ":method":
			curPseudo.Method = f.Value
		case ":scheme":
			curPseudo.Scheme = f.Value
		case ":authority":
			curPseudo.Authority = f.Value
		case ":path":
			curPseudo.Path = f.Value
		default:
			st.req.Headers.Add(f.Name, f.Value)
		}
	})

	for {
		frame, err := framer.ReadFrame()
		if err != nil {
			return
		}
		switch fr := frame.(type) {
		case *http2.SettingsFrame:
			if !fr.IsAck() {
				framer.WriteSettingsAck()
			}
		case *http2.PingFrame:
			if !fr.IsAck() {
				framer.WritePing(true, fr.Data)
			}
		case *http2.WindowUpdateFrame:
			// Connection-level credit is not tracked by this driver;
			// stream flow control is bounded by h2.Exchange's own
			// initial credit.
		case *http2.HeadersFrame:
			curStreamID = fr.StreamID
			curPseudo = header.Pseudo{}
			req := &exchange.Request{Headers: header.New(), Version: exchange.HTTP2}
			body := buf.NewSequence()
			streams[curStreamID] = &h2Stream{req: req, body: body, endStream: fr.StreamEnded()}

			if _, err := dec.Write(fr.HeaderBlockFragment()); err != nil {
				return
			}
			if !fr.HeadersEnded() {
				continue
			}
			req.FromPseudo(curPseudo)
			req.Body = body
			if fr.StreamEnded() {
				body.Close(nil)
				c.dispatchH2Stream(ctx, framer, enc, &encBuf, curStreamID, req, peerMaxFrame)
				delete(streams, curStreamID)
			}
		case *http2.ContinuationFrame:
			if _, err := dec.Write(fr.HeaderBlockFragment()); err != nil {
				return
			}
			if !fr.HeadersEnded() {
				continue
			}
			st := streams[fr.StreamID]
			if st == nil {
				return
			}
			st.req.FromPseudo(curPseudo)
			st.req.Body = st.body
			if st.endStream {
				st.body.Close(nil)
				c.dispatchH2Stream(ctx, framer, enc, &encBuf, fr.StreamID, st.req, peerMaxFrame)
				delete(streams, fr.StreamID)
			}
		case *http2.DataFrame:
			st := streams[fr.StreamID]
			if st == nil {
				continue
			}
			if n := len(fr.Data()); n > 0 {
				st.bodyRead += int64(n)
				if c.cfg.MaxBodyBytes > 0 && st.bodyRead > c.cfg.MaxBodyBytes {
					st.body.Close(buf.ErrBodyTooLarge)
					delete(streams, fr.StreamID)
					// Answer the oversized request as a Protocol-kind 400.
					c.nextID++
					ex := exchange.New(c.nextID, st.req, c.handler, c.errHandler)
					hx := h2.New(framer, enc, &encBuf, fr.StreamID, ex.Response, 65535)
					hx.SetMaxFrameSize(peerMaxFrame)
					c.errEngine.Handle(ex, exchange.BadRequest(buf.ErrBodyTooLarge), hx)
					c.drainResponse(ctx, ex, hx)
					continue
				}
				st.body.Push(buf.Acquire(fr.Data()))
			}
			if fr.StreamEnded() {
				st.body.Close(nil)
				c.dispatchH2Stream(ctx, framer, enc, &encBuf, fr.StreamID, st.req, peerMaxFrame)
				delete(streams, fr.StreamID)
			}
		}
	}
}

// dispatchH2Stream runs one fully-received stream's exchange: handler
// dispatch, error-exchange fallback on failure, then draining the
// response body through the stream's h2.Exchange writer.
func (c *Conn) dispatchH2Stream(ctx context.Context, framer *http2.Framer, enc *hpack.Encoder, encBuf *bytes.Buffer, streamID uint32, req *exchange.Request, maxFrameSize uint32) {
	c.nextID++
	ex := exchange.New(c.nextID, req, c.handler, c.errHandler)
	hx := h2.New(framer, enc, encBuf, streamID, ex.Response, 65535)
	hx.SetMaxFrameSize(maxFrameSize)

	if derr := ex.Dispatch(); derr != nil {
		c.errEngine.Handle(ex, derr, hx)
	}
	c.drainResponse(ctx, ex, hx)
}
