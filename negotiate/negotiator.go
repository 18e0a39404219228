/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package negotiate implements the ALPN protocol negotiation handler:
// once a TLS handshake completes, install the HTTP/1.1 or HTTP/2
// pipeline for the remainder of the connection's lifetime.
package negotiate

import (
	"errors"
	"fmt"
)

// Protocol is one of the two ALPN tokens this engine accepts.
type Protocol string

const (
	HTTP2 Protocol = "h2"
	HTTP1 Protocol = "http/1.1"
)

// ErrUnsupportedProtocol is returned when the negotiated ALPN token is
// neither "h2" nor "http/1.1".
var ErrUnsupportedProtocol = errors.New("negotiate: unsupported protocol")

// ErrIdleTimeout is returned when an idle event fires before handshake
// completion; the handshake fails rather than waiting further.
var ErrIdleTimeout = errors.New("negotiate: idle timeout during handshake")

// Pipeline is the per-protocol connection pipeline installed once
// negotiation completes.
type Pipeline interface {
	Protocol() Protocol
}

// Installer builds the Pipeline for a negotiated protocol.
type Installer func(Protocol) (Pipeline, error)

// Negotiator runs ALPN negotiation exactly once per connection. Once
// installed, the pipeline never re-negotiates for the connection's
// lifetime.
type Negotiator struct {
	install   Installer
	installed Pipeline
}

// New returns a Negotiator that builds pipelines with install.
func New(install Installer) *Negotiator {
	return &Negotiator{install: install}
}

// HandshakeComplete is called once TLS negotiation yields token. It
// installs the matching pipeline, rejecting any token other than "h2" or
// "http/1.1" with ErrUnsupportedProtocol.
func (n *Negotiator) HandshakeComplete(token string) (Pipeline, error) {
	if n.installed != nil {
		return n.installed, nil
	}
	var proto Protocol
	switch token {
	case string(HTTP2):
		proto = HTTP2
	case string(HTTP1):
		proto = HTTP1
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, token)
	}
	p, err := n.install(proto)
	if err != nil {
		return nil, err
	}
	n.installed = p
	return p, nil
}

// Idle is called when an idle event fires. Before HandshakeComplete it
// always fails the handshake, regardless of how close negotiation was to
// finishing; once a pipeline is installed it is a no-op.
func (n *Negotiator) Idle() error {
	if n.installed != nil {
		return nil
	}
	return ErrIdleTimeout
}

// Installed reports the pipeline chosen for this connection, or nil if
// negotiation has not completed.
func (n *Negotiator) Installed() Pipeline { return n.installed }
