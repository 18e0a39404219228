/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package server drives one physical connection end to end: ALPN
// negotiation, then the negotiated protocol's request loop, wiring the
// exchange, h1, h2, sched, negotiate, and errorex packages together.
package server

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/badu/exchange/errorex"
	"github.com/badu/exchange/exchange"
	"github.com/badu/exchange/negotiate"
)

// Config bounds a connection's read/write/idle deadlines and the header
// and body size limits its parsers enforce.
type Config struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int64
	MaxBodyBytes   int64
}

// Conn serves one accepted connection for the lifetime of the process
// that owns it.
type Conn struct {
	netConn    net.Conn
	cfg        Config
	handler    exchange.Handler
	errHandler exchange.ErrorHandler
	errEngine  *errorex.Engine
	log        *zap.Logger
	nextID     uint64
}

// New returns a Conn ready to Serve netConn.
func New(netConn net.Conn, cfg Config, handler exchange.Handler, errHandler exchange.ErrorHandler, errEngine *errorex.Engine, log *zap.Logger) *Conn {
	return &Conn{netConn: netConn, cfg: cfg, handler: handler, errHandler: errHandler, errEngine: errEngine, log: log}
}

type simplePipeline struct{ proto negotiate.Protocol }

func (p simplePipeline) Protocol() negotiate.Protocol { return p.proto }

// Serve runs the connection's ALPN handshake (when netConn is a TLS
// connection) and then the negotiated protocol's request loop.
func (c *Conn) Serve(ctx context.Context) {
	defer c.netConn.Close()

	n := negotiate.New(func(p negotiate.Protocol) (negotiate.Pipeline, error) {
		return simplePipeline{proto: p}, nil
	})

	tlsConn, isTLS := c.netConn.(*tls.Conn)
	if isTLS {
		if c.cfg.ReadTimeout != 0 {
			c.netConn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}
		if err := tlsConn.Handshake(); err != nil {
			c.log.Warn("tls handshake failed", zap.String("remote", c.netConn.RemoteAddr().String()), zap.Error(err))
			return
		}
		proto := tlsConn.ConnectionState().NegotiatedProtocol
		if proto == "" {
			if err := n.Idle(); err != nil {
				c.log.Warn("alpn idle before negotiation completed", zap.Error(err))
			}
			return
		}
		if _, err := n.HandshakeComplete(proto); err != nil {
			c.log.Warn("unsupported alpn protocol", zap.String("protocol", proto), zap.Error(err))
			return
		}
	} else if _, err := n.HandshakeComplete(string(negotiate.HTTP1)); err != nil {
		return
	}

	c.netConn.SetReadDeadline(time.Time{})

	switch n.Installed().Protocol() {
	case negotiate.HTTP2:
		c.serveH2(ctx)
	default:
		c.serveH1(ctx)
	}
}
